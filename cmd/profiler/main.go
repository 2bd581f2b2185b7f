package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"web/cellcluster/cluster"
	"web/cellcluster/internal/logging"

	"go.uber.org/zap"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to file")
	heapprofile = flag.String("heapprofile", "", "write heap profile to file")
	numPoints   = flag.Int("points", 100000, "number of points to generate")
	radius      = flag.Float64("radius", 0.005, "clustering radius")
	blobs       = flag.Int("blobs", 0, "when >0, scatter points around this many centres instead of uniformly")
	testall     = flag.Bool("testall", false, "test all configurations")
	logLevel    = flag.String("log-level", "info", "log level")
)

func generatePoints(n, k int) []cluster.Point {
	// Fixed seed so profiles are comparable across runs.
	if k > 0 {
		return cluster.GenerateBlobs(n, k, 0.02, 42)
	}
	return cluster.GenerateTestPoints(n, 42)
}

func runSingleProfile(logger *zap.Logger, numPoints int, radius float64) error {
	logger.Info("profiling", zap.Int("points", numPoints), zap.Float64("radius", radius))

	points := generatePoints(numPoints, *blobs)

	var memStatsBefore, memStatsAfter runtime.MemStats
	runtime.ReadMemStats(&memStatsBefore)

	start := time.Now()
	g, err := cluster.NewGrid(points, radius)
	if err != nil {
		return err
	}
	binned := time.Since(start)
	l := cluster.LabelGrid(g)
	duration := time.Since(start)

	runtime.ReadMemStats(&memStatsAfter)
	allocMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024

	sizes := l.Sizes()
	largest := 0
	if len(sizes) > 0 {
		largest = sizes[0]
	}
	logger.Info("clustering completed",
		zap.Int("grid", g.Size),
		zap.Int("clusters", l.NumClusters()),
		zap.Int("largest", largest),
		zap.Duration("binning", binned),
		zap.Duration("total", duration),
		zap.Float64("alloc_mb", allocMB),
		zap.Float64("heap_mb", float64(memStatsAfter.Alloc)/1024/1024))
	return nil
}

func runProfileBattery() {
	pointCounts := []int{1000, 10000, 100000, 1000000}
	radii := []float64{0.1, 0.02, 0.005, 0.001}

	fmt.Println("Running comprehensive profile battery...")
	fmt.Println("=======================================")

	fmt.Printf("%-10s | %-8s | %-6s | %-9s | %-15s | %-11s | %-7s\n",
		"Points", "Radius", "Grid", "Clusters", "Duration", "Memory (MB)", "GC Runs")
	fmt.Printf("%s\n", "-----------------------------------------------------------------------------------")

	for _, n := range pointCounts {
		points := generatePoints(n, *blobs)
		for _, r := range radii {
			var memStatsBefore, memStatsAfter runtime.MemStats
			runtime.ReadMemStats(&memStatsBefore)

			start := time.Now()
			l, err := cluster.Cluster(points, r)
			duration := time.Since(start)
			if err != nil {
				fmt.Printf("%-10d | %-8g | %v\n", n, r, err)
				continue
			}

			runtime.ReadMemStats(&memStatsAfter)
			memMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024
			gcRuns := memStatsAfter.NumGC - memStatsBefore.NumGC

			fmt.Printf("%-10d | %-8g | %-6d | %-9d | %-15s | %-11.2f | %-7d\n",
				n, r, l.Size, l.NumClusters(), duration, memMB, gcRuns)
		}
		fmt.Printf("%s\n", "-----------------------------------------------------------------------------------")
	}
}

func main() {
	flag.Parse()

	logger := logging.OrNop(*logLevel, false)
	defer logger.Sync()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			logger.Error("could not create CPU profile", zap.Error(err))
			return
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Error("could not start CPU profile", zap.Error(err))
			return
		}
		defer pprof.StopCPUProfile()
	}

	if *testall {
		runProfileBattery()
	} else if err := runSingleProfile(logger, *numPoints, *radius); err != nil {
		logger.Error("profile failed", zap.Error(err))
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			logger.Error("could not create memory profile", zap.Error(err))
			return
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			logger.Error("could not write memory profile", zap.Error(err))
		}
	}

	if *heapprofile != "" {
		f, err := os.Create(*heapprofile)
		if err != nil {
			logger.Error("could not create heap profile", zap.Error(err))
			return
		}
		defer f.Close()

		memProfile := pprof.Lookup("heap")
		if memProfile == nil {
			logger.Error("could not find heap profile")
			return
		}
		if err := memProfile.WriteTo(f, 0); err != nil {
			logger.Error("could not write heap profile", zap.Error(err))
		}
	}
}
