package cluster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Report is the serializable result of a run.
type Report struct {
	Radius      float64 `json:"radius"`
	GridSize    int     `json:"gridSize"`
	NumPoints   int     `json:"numPoints"`
	NumClusters int     `json:"numClusters"`
	Sizes       []int   `json:"sizes"`
	PointLabels []Label `json:"pointLabels"`
}

// Report builds the serializable view of l.
func (l *Labeling) Report() Report {
	return Report{
		Radius:      l.Radius,
		GridSize:    l.Size,
		NumPoints:   l.NumPoints(),
		NumClusters: l.NumClusters(),
		Sizes:       l.Sizes(),
		PointLabels: l.PointLabels(),
	}
}

// WriteMatrix prints one line per grid row. Each cell shows its label and
// point count; empty cells print label 0.
func WriteMatrix(w io.Writer, l *Labeling) error {
	bw := bufio.NewWriter(w)
	for row := 0; row < l.Size; row++ {
		for col := 0; col < l.Size; col++ {
			c := row*l.Size + col
			label := l.Labels[c]
			if label == Empty {
				label = 0
			}
			fmt.Fprintf(bw, "%-3d (%-3d) - ", label, l.Counts[c])
		}
		bw.WriteByte('\n')
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

// WriteSizes prints sizes as a bracketed, comma separated list.
func WriteSizes(w io.Writer, sizes []int) error {
	buf := make([]byte, 0, 2+len(sizes)*4)
	buf = append(buf, '[')
	for i, s := range sizes {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = strconv.AppendInt(buf, int64(s), 10)
	}
	buf = append(buf, ']', '\n')
	_, err := w.Write(buf)
	return err
}

// Summary holds aggregate statistics over the clusters of a labeling.
type Summary struct {
	TotalPoints   int     `json:"totalPoints"`
	NumClusters   int     `json:"numClusters"`
	NumSingletons int     `json:"numSingletons"`
	Largest       int     `json:"largest"`
	Smallest      int     `json:"smallest"`
	Mean          float64 `json:"mean"`
}

func Summarize(l *Labeling) Summary {
	sizes := l.Sizes()
	summary := Summary{NumClusters: len(sizes)}
	if len(sizes) == 0 {
		return summary
	}

	summary.Largest = sizes[0]
	summary.Smallest = sizes[len(sizes)-1]
	for _, s := range sizes {
		summary.TotalPoints += s
		if s == 1 {
			summary.NumSingletons++
		}
	}
	summary.Mean = float64(summary.TotalPoints) / float64(len(sizes))
	return summary
}
