package cluster

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMatrix(t *testing.T) {
	// radius 0.5 gives a 3x3 grid of 0.3536 cells.
	points := []Point{{0.1, 0.1}, {0.2, 0.05}, {0.9, 0.9}}
	l, err := Cluster(points, 0.5)
	require.NoError(t, err)
	require.Equal(t, 3, l.Size)

	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, l))

	want := "" +
		"1   (2  ) - 0   (0  ) - 0   (0  ) - \n" +
		"0   (0  ) - 0   (0  ) - 0   (0  ) - \n" +
		"0   (0  ) - 0   (0  ) - 2   (1  ) - \n" +
		"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteMatrixWideLabels(t *testing.T) {
	l, err := Cluster(GenerateTestPoints(3000, 42), 0.005)
	require.NoError(t, err)
	require.Greater(t, l.NumClusters(), 999)

	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, l))

	lines := strings.Split(buf.String(), "\n")
	// Size rows, a blank separator, and the empty tail after the last newline.
	require.Len(t, lines, l.Size+2)
	assert.Equal(t, "", lines[l.Size])
	assert.Equal(t, l.Size, strings.Count(lines[0], " - "))
	// Labels wider than three digits push the column instead of truncating.
	assert.Contains(t, buf.String(), fmt.Sprintf("%d (", l.NumClusters()))
}

func TestWriteSizes(t *testing.T) {
	testCases := []struct {
		sizes []int
		want  string
	}{
		{nil, "[]\n"},
		{[]int{5}, "[5]\n"},
		{[]int{2, 1}, "[2, 1]\n"},
		{[]int{120, 3, 3, 1}, "[120, 3, 3, 1]\n"},
	}
	for _, tc := range testCases {
		var buf bytes.Buffer
		require.NoError(t, WriteSizes(&buf, tc.sizes))
		assert.Equal(t, tc.want, buf.String())
	}
}

func TestReport(t *testing.T) {
	points := []Point{{0.05, 0.05}, {0.1, 0.05}, {0.5, 0.5}}
	l, err := Cluster(points, 0.1)
	require.NoError(t, err)

	r := l.Report()
	assert.Equal(t, 0.1, r.Radius)
	assert.Equal(t, 15, r.GridSize)
	assert.Equal(t, 3, r.NumPoints)
	assert.Equal(t, 2, r.NumClusters)
	assert.Equal(t, []int{2, 1}, r.Sizes)
	assert.Equal(t, []Label{1, 1, 2}, r.PointLabels)
}

func TestSummarize(t *testing.T) {
	points := []Point{
		{0.05, 0.05}, {0.1, 0.05}, {0.12, 0.07},
		{0.5, 0.5},
		{0.9, 0.1}, {0.92, 0.1},
		{0.2, 0.9},
	}
	l, err := Cluster(points, 0.1)
	require.NoError(t, err)

	s := Summarize(l)
	assert.Equal(t, Summary{
		TotalPoints:   7,
		NumClusters:   4,
		NumSingletons: 2,
		Largest:       3,
		Smallest:      1,
		Mean:          1.75,
	}, s)

	empty, err := Cluster(nil, 0.1)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, Summarize(empty))
}
