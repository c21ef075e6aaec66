package common

import (
	"os"
	"testing"
)

func IsTestEnv() bool {
	return testing.Testing()
}

func IsDevelopment() bool {
	return os.Getenv(EnvKeyGoEnv) == "development"
}

func IsProduction() bool {
	return os.Getenv(EnvKeyGoEnv) == "production"
}

func Mapper[T any, R any](items []T, mapFn func(T) R) []R {
	mapped := make([]R, len(items))
	for i := range len(items) {
		mapped[i] = mapFn(items[i])
	}
	return mapped
}

func Reducer[T any, R any](items []T, reduceFn func(R, T) R, initAcc R) R {
	finalAcc := initAcc
	for i := range len(items) {
		finalAcc = reduceFn(finalAcc, items[i])
	}
	return finalAcc
}

// Filter splits items into the ones keepFn accepts and the ones it rejects,
// preserving order in both.
func Filter[T any](items []T, keepFn func(T) bool) (kept []T, dropped []T) {
	for i := range len(items) {
		if keepFn(items[i]) {
			kept = append(kept, items[i])
		} else {
			dropped = append(dropped, items[i])
		}
	}
	return kept, dropped
}
