package testing

import (
	"os"
	"path"
	"runtime"
)

func init() {
	// tests run from the project root so relative fixture paths resolve the
	// same way as for the service binary
	//
	//   in some_test.go,
	//   import (
	//     _ "liyu1981.xyz/sensor-ingest-service/pkg/testing"
	//   )

	_, filename, _, _ := runtime.Caller(0)
	dir := path.Join(path.Dir(filename), "..", "..")
	err := os.Chdir(dir)
	if err != nil {
		panic(err)
	}
}
