package evaluation

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/depthpose/logging"
	"go.viam.com/depthpose/pose"
)

// Accuracy thresholds, in centimetres. A joint is within a threshold when its distance is
// strictly less than it.
const (
	Threshold5  = 5.0
	Threshold10 = 10.0
	Threshold15 = 15.0
)

// Summary aggregates a set of joint distances.
type Summary struct {
	Count        int     `json:"count"`
	MeanDistance float64 `json:"mean_distance_cm"`
	Within5      float64 `json:"within_5cm"`
	Within10     float64 `json:"within_10cm"`
	Within15     float64 `json:"within_15cm"`
}

// JointSummary is the Summary of a single joint's column.
type JointSummary struct {
	Joint string `json:"joint"`
	Summary
}

// Summarize returns the mean distance and the fraction of distances under 5, 10 and 15 cm.
func Summarize(dists *mat.Dense) (Summary, error) {
	r, c := dists.Dims()
	values := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		values = append(values, dists.RawRowView(i)...)
	}
	return summarize(values)
}

// SummarizePerJoint returns one Summary per column of dists, named after pose.JointNames
// when the column count matches the ITOP skeleton.
func SummarizePerJoint(dists *mat.Dense) ([]JointSummary, error) {
	_, c := dists.Dims()
	out := make([]JointSummary, 0, c)
	for j := 0; j < c; j++ {
		s, err := summarize(mat.Col(nil, j, dists))
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("joint %d", j)
		if c == pose.NumJoints {
			name = pose.JointNames[j]
		}
		out = append(out, JointSummary{Joint: name, Summary: s})
	}
	return out, nil
}

func summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, errors.New("no distances to summarize")
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Count:        len(values),
		MeanDistance: mean,
		Within5:      fractionBelow(values, Threshold5),
		Within10:     fractionBelow(values, Threshold10),
		Within15:     fractionBelow(values, Threshold15),
	}, nil
}

func fractionBelow(values []float64, threshold float64) float64 {
	var n int
	for _, v := range values {
		if v < threshold {
			n++
		}
	}
	return float64(n) / float64(len(values))
}

// Report logs the summary at debug level.
func Report(logger logging.Logger, s Summary) {
	logger.Debugw("accuracy",
		"count", s.Count,
		"average_distance_cm", s.MeanDistance,
		"within_5cm", s.Within5,
		"within_10cm", s.Within10,
		"within_15cm", s.Within15,
	)
}

// ReportPerJoint logs one line per joint at debug level.
func ReportPerJoint(logger logging.Logger, joints []JointSummary) {
	for _, j := range joints {
		Report(logger.Sublogger(j.Joint), j.Summary)
	}
}

// Table renders per-joint summaries, followed by their overall summary, as a text table.
func Table(joints []JointSummary, overall Summary) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Joint", "Mean (cm)", "< 5cm", "< 10cm", "< 15cm"})
	for _, j := range joints {
		t.AppendRow(summaryRow(j.Joint, j.Summary))
	}
	t.AppendFooter(summaryRow("ALL", overall))
	return t.Render()
}

func summaryRow(name string, s Summary) table.Row {
	return table.Row{
		name,
		fmt.Sprintf("%.2f", s.MeanDistance),
		fmt.Sprintf("%.3f", s.Within5),
		fmt.Sprintf("%.3f", s.Within10),
		fmt.Sprintf("%.3f", s.Within15),
	}
}
