package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var maxFiles int = 500
var rowsPerFile int = 200
var watchRoot string = "data"
var httpHostPort string = "127.0.0.1:1080"
var grpcHostPort string = "127.0.0.1:10801"

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

type fileEntry struct {
	FileName string `json:"file_name"`
	Status   string `json:"status"`
}

func main() {
	flag.IntVar(&maxFiles, "files", maxFiles, "number of files to drop")
	flag.IntVar(&rowsPerFile, "rows", rowsPerFile, "rows per file")
	flag.StringVar(&watchRoot, "root", watchRoot, "directory watched by the service")
	flag.StringVar(&httpHostPort, "http", httpHostPort, "status API host:port")
	flag.StringVar(&grpcHostPort, "grpc", grpcHostPort, "gRPC host:port, empty to skip the health check")
	flag.Parse()

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	if grpcHostPort != "" {
		conn, err := grpc.NewClient(grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Fatal("Failed to connect to gRPC server:", err)
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		hr, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
		cancel()
		if err != nil || hr.Status != healthpb.HealthCheckResponse_SERVING {
			log.Fatalf("gRPC health check failed: %v %v", err, hr)
		}

		fmt.Printf("gRPC server verified and serving\n")
	}

	batch := uuid.NewString()[:8]
	fileNames := make([]string, maxFiles)
	for i := range maxFiles {
		fileNames[i] = fmt.Sprintf("burst_%s_%05d.csv", batch, i)
	}

	startTime := time.Now()
	wg := sync.WaitGroup{}
	for i := range maxFiles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dropFile(fileNames[i]); err != nil {
				fmt.Printf("\nerror: %v\n", err)
			}
			// same name again from another writer, must be deduplicated
			if flipCoin() {
				_ = dropFile(fileNames[i])
			}
		}()
	}
	wg.Wait()
	fmt.Printf("dropped %v files in %v seconds\n", maxFiles, time.Since(startTime).Seconds())

	done := 0
	for done < maxFiles {
		time.Sleep(500 * time.Millisecond)
		done = countFinished(batch)
		fmt.Printf("\rfinished %v/%v files", done, maxFiles)
	}
	usedTime := time.Since(startTime)

	fmt.Printf(
		"\nprocessed %v files: used time=%v seconds, throughput=%v files/second, %v rows/second\n",
		maxFiles, usedTime.Seconds(), float64(maxFiles)/usedTime.Seconds(),
		float64(maxFiles*rowsPerFile)/usedTime.Seconds(),
	)
}

func flipCoin() bool {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(100000)%2 == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	defer rndMu.Unlock()
	val := min + rnd.Float64()*(max-min)
	multiplier := math.Pow10(decimal)
	return math.Round(val*multiplier) / multiplier
}

// dropFile writes into a staging directory next to the watch root and renames
// the file in, so the service only ever sees complete files.
func dropFile(fileName string) error {
	var b strings.Builder
	b.WriteString("id,room_id/id,noted_date,temp,out/in\n")
	start := time.Date(2018, 12, 8, 9, 30, 0, 0, time.UTC)
	for i := range rowsPerFile {
		loc := "In"
		if flipCoin() {
			loc = "Out"
		}
		ts := start.Add(time.Duration(i) * time.Minute)
		fmt.Fprintf(&b, "__export__.%s_%d,Room Admin,%s,%d,%s\n",
			strings.TrimSuffix(fileName, ".csv"), i, ts.Format("02-01-2006 15:04"),
			int(rndFloat64(-60, 60, 0)), loc)
	}

	staging := filepath.Join(filepath.Dir(filepath.Clean(watchRoot)), ".burst-staging")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(staging, uuid.NewString())
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(watchRoot, fileName))
}

func countFinished(batch string) int {
	resp, err := http.Get(fmt.Sprintf("http://%s/files", httpHostPort))
	if err != nil {
		fmt.Printf("\nerror: %v\n", err)
		return 0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0
	}

	var files []fileEntry
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		fmt.Printf("\nerror: %v\n", err)
		return 0
	}

	n := 0
	for _, f := range files {
		if strings.Contains(f.FileName, batch) && f.Status != "dispatched" {
			n++
		}
	}
	return n
}
