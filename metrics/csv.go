package metrics

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCompletionsCSV writes the completion records as CSV, one row per
// completed message, with a header row.
func (c *Collector) WriteCompletionsCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{
		"packet_id", "flow_id", "class", "bytes", "hop_count",
		"creation_time", "completion_time", "latency",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range c.completions {
		row := []string{
			r.PacketID,
			r.FlowID,
			strconv.Itoa(r.Class),
			strconv.Itoa(r.Bytes),
			strconv.Itoa(r.HopCount),
			formatTime(r.CreationTime),
			formatTime(r.CompletionTime),
			formatTime(r.Latency),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteDropsCSV writes the drop records as CSV with a header row.
func (c *Collector) WriteDropsCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"packet_id", "flow_id", "class", "reason", "drop_time"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range c.drops {
		row := []string{
			r.PacketID,
			r.FlowID,
			strconv.Itoa(r.Class),
			r.Reason,
			formatTime(r.DropTime),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func formatTime(t float64) string {
	return strconv.FormatFloat(t, 'g', -1, 64)
}
