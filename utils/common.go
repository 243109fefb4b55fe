package utils

import (
	"log"
	"time"

	"github.com/fatih/color"
)

func TimeTrack(start time.Time, name string) {
	log.Printf("%s took %s\n", name, time.Since(start))
}

var (
	ScopeColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgBlue).SprintFunc())(is...)
	}
	FunColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiYellow).SprintFunc())(is...)
	}
	CountColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
	}
	WarnColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	}
)
