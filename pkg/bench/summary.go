// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/cilium/probehost/pkg/countermap"
	"github.com/cilium/probehost/pkg/host"
	"github.com/cilium/probehost/pkg/strutils"
)

// ProgramStats counts the runs of one program.
type ProgramStats struct {
	Runs     int64
	Failures int64
	// LastStatus is the status of the most recent failing run.
	LastStatus int64 `json:",omitempty"`
}

// StoreSummary is the content of a store after the run.
type StoreSummary struct {
	Name     string
	Type     string
	Capacity uint32
	Entries  []countermap.Entry
}

// Summary gathers run results. Serializes to JSON.
type Summary struct {
	Args *Arguments

	StartTime time.Time
	EndTime   time.Time

	Triggers int64
	Runs     int64
	Programs map[string]*ProgramStats

	Stores []StoreSummary `json:",omitempty"`
}

func newSummary(args *Arguments) *Summary {
	return &Summary{
		Args:      args,
		StartTime: time.Now(),
		Programs:  make(map[string]*ProgramStats),
	}
}

func (s *Summary) add(results []host.Result) {
	s.Triggers++
	for _, r := range results {
		s.Runs++
		st, ok := s.Programs[r.Program]
		if !ok {
			st = &ProgramStats{}
			s.Programs[r.Program] = st
		}
		st.Runs++
		// any nonzero status is a failure, as in the host metrics
		if r.Status != 0 {
			st.Failures++
			st.LastStatus = r.Status
		}
	}
}

// AddStores records the content of every store in reg.
func (s *Summary) AddStores(reg *countermap.Registry) {
	for _, h := range reg.Handles() {
		store, err := reg.Get(h)
		if err != nil {
			continue
		}
		s.Stores = append(s.Stores, StoreSummary{
			Name:     store.Name(),
			Type:     store.Spec().Type.String(),
			Capacity: store.Spec().MaxEntries,
			Entries:  countermap.Dump(store),
		})
	}
}

func (s *Summary) Dump(w io.Writer) error {
	return json.NewEncoder(w).Encode(s)
}

func (s *Summary) PrettyPrint(w io.Writer) {
	title := color.New(color.FgBlue)
	title.Fprintln(w, "Run summary")
	title.Fprintln(w, "-----------")
	fmt.Fprintf(w, "Arguments:  %v\n", s.Args)
	fmt.Fprintf(w, "Duration:   %s\n", s.EndTime.Sub(s.StartTime))
	fmt.Fprintf(w, "Triggers:   %d\n", s.Triggers)
	fmt.Fprintf(w, "Runs:       %d\n", s.Runs)

	names := make([]string, 0, len(s.Programs))
	for n := range s.Programs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		st := s.Programs[n]
		line := fmt.Sprintf("  %-12s runs=%d failures=%d", n, st.Runs, st.Failures)
		if st.Failures > 0 {
			color.New(color.FgRed).Fprintf(w, "%s last=%d\n", line, st.LastStatus)
			continue
		}
		fmt.Fprintln(w, line)
	}

	for _, st := range s.Stores {
		title.Fprintf(w, "Store %s (%s, capacity %s)\n", st.Name, st.Type, strutils.SizeWithSuffix(int(st.Capacity)))
		for _, e := range st.Entries {
			if e.Value == 0 {
				continue
			}
			fmt.Fprintf(w, "  %d: %d\n", e.Key, e.Value)
		}
	}
}
