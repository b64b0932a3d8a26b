package util

import (
	"fmt"
	"log"
	"runtime"
	"strconv"
	"strings"
)

// Tokenize splits on runs of whitespace.
func Tokenize(s string) []string {
	return strings.Fields(s)
}

// TokenizeOn splits on sep and drops empty pieces.
func TokenizeOn(s, sep string) []string {
	pieces := strings.Split(s, sep)
	retval := pieces[:0]
	for _, p := range pieces {
		if len(p) > 0 {
			retval = append(retval, p)
		}
	}
	return retval
}

func ScanInts(values []string) ([]int, error) {
	retval := make([]int, len(values))
	for i, v := range values {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", v)
		}
		retval[i] = n
	}
	return retval, nil
}

func ScanFloats(values []string) ([]float64, error) {
	retval := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %q", v)
		}
		retval[i] = f
	}
	return retval, nil
}

// ScanBool accepts the spellings found in decoder configs: true/false, 1/0,
// yes/no. An empty value means true (a bare switch).
func ScanBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("expected boolean, got %q", s)
}

func Max(a, b int) int {
	if a < b {
		return b
	}
	return a
}

func LogMemory() {
	s := &runtime.MemStats{}
	runtime.ReadMemStats(s)
	log.Println("*** Memory Info ***")
	log.Println("Bytes Allocated InUse:\t", s.Alloc)
	log.Println("Heap Allocated InUse:\t", s.HeapAlloc)
	log.Println("Heap Objects:\t\t", s.HeapObjects)
	log.Println("*** ***")
}
