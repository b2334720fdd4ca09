package annotations

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatEvents(t *testing.T) {
	f := NewOutputFormatter(&bytes.Buffer{})

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			"program complete",
			Event{Name: ProgramComplete, Latency: 1500 * time.Microsecond, Data: map[string]interface{}{
				"success": true, "relations.count": 2, "tuples.count": 12345,
			}},
			"[1.5ms] === Program done with 2 Relations with 12,345 Tuples total.",
		},
		{
			"program failed",
			Event{Name: ProgramComplete, Data: map[string]interface{}{"success": false, "error": errors.New("boom")}},
			"[0µs] ✗ Program failed: boom",
		},
		{
			"recursive stratum",
			Event{Name: StratumBegin, Data: map[string]interface{}{
				"stratum": 1, "relations": []string{"Path", "Reach"}, "recursive": true,
			}},
			"[0µs] === recursive stratum 1 {Path, Reach} starting",
		},
		{
			"stratum complete",
			Event{Name: StratumComplete, Data: map[string]interface{}{
				"success": true, "stratum": 1, "tuples.count": 3, "iterations": 2,
			}},
			"[0µs] stratum 1 completed with 3 Tuples after 2 iterations",
		},
		{
			"iteration",
			Event{Name: FixpointIteration, Data: map[string]interface{}{"stratum": 1, "iteration": 2, "tuples.count": 3}},
			"[0µs]   iteration 2 of stratum 1: 3 Tuples",
		},
		{
			"merged",
			Event{Name: RelationMerged, Data: map[string]interface{}{
				"source": "@new_Path", "target": "Path", "tuples.added": 1,
			}},
			"[0µs]   @new_Path → Path (+1 Tuples)",
		},
		{
			"subsumed",
			Event{Name: RelationSubsumed, Data: map[string]interface{}{"relation": "Best", "tuples.erased": 1}},
			"[0µs]   1 Tuples erased from Best",
		},
		{
			"released",
			Event{Name: RelationReleased, Data: map[string]interface{}{"relation": "Edge", "tuples.count": 2}},
			"[0µs]   released Edge(), 2 Tuples",
		},
		{
			"stored",
			Event{Name: IOStore, Data: map[string]interface{}{
				"success": true, "relation": "Path", "tuples.count": 3, "operation": "output",
			}},
			"[0µs] stored Path(), 3 Tuples (output)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(tt.event))
		})
	}
}

func TestProgramInvokedFormat(t *testing.T) {
	f := NewOutputFormatter(&bytes.Buffer{})
	got := f.Format(Event{Name: ProgramInvoked, Data: map[string]interface{}{"relations.count": 4, "strata.count": 2}})
	assert.Equal(t, "[0µs] Program: 4 Relations in 2 strata", got)
}

func TestCollector(t *testing.T) {
	var seen []string
	c := NewCollector(func(e Event) { seen = append(seen, e.Name) })

	c.AddTiming(StratumBegin, time.Now(), nil)
	c.AddTiming(FixpointIteration, time.Now(), nil)
	c.AddTiming(FixpointIteration, time.Now(), nil)

	assert.Equal(t, 2, c.Count(FixpointIteration))
	assert.Len(t, c.Events(), 3)
	assert.Equal(t, []string{StratumBegin, FixpointIteration, FixpointIteration}, seen)

	c.Reset()
	assert.Empty(t, c.Events())
	assert.NotNil(t, c.Handler())
}

func TestDisabledCollector(t *testing.T) {
	c := NewCollector(nil)
	c.Add(Event{Name: StratumBegin})
	assert.Zero(t, c.Count(StratumBegin))
}

func TestRenderNames(t *testing.T) {
	r := NewRelationRenderer(false)
	assert.Equal(t, "{a, b}", r.RenderNames([]string{"a", "b"}))
	assert.Equal(t, "Edge(x y), 1,000 Tuples", r.RenderRelation(RelationInfo{Name: "Edge", Attrs: []string{"x", "y"}, TupleCount: 1000}))
	assert.Equal(t, "Edge(x)", r.RenderRelation(RelationInfo{Name: "Edge", Attrs: []string{"x"}, TupleCount: -1}))
}
