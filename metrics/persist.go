package metrics

import (
	"github.com/fabriclab/cxlfabric/recording"
)

// DumpTo writes all records into a recorder as the tables "completions" and
// "drops".
func (c *Collector) DumpTo(r recording.Recorder) {
	r.CreateTable("completions", CompletionRecord{})
	for _, record := range c.completions {
		r.Insert("completions", record)
	}

	r.CreateTable("drops", DropRecord{})
	for _, record := range c.drops {
		r.Insert("drops", record)
	}

	r.Flush()
}
