package jasmine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDecode(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		want    any
		wantErr bool
	}{
		{
			name:  "jasmineStarted",
			event: Event{Name: EventJasmineStarted, Payload: json.RawMessage(`{"totalSpecsDefined":3,"order":{"random":true,"seed":"4321"}}`)},
			want:  SuiteInfo{TotalSpecsDefined: 3, Order: Order{Random: true, Seed: "4321"}},
		},
		{
			name:  "specDone",
			event: Event{Name: EventSpecDone, Payload: json.RawMessage(`{"id":"spec0","fullName":"a b","status":"failed","failedExpectations":[{"message":"boom","stack":"at x"}]}`)},
			want: SpecResult{
				ID:                 "spec0",
				FullName:           "a b",
				Status:             SpecFailed,
				FailedExpectations: []Expectation{{Message: "boom", Stack: "at x"}},
			},
		},
		{
			name:  "suiteDone",
			event: Event{Name: EventSuiteDone, Payload: json.RawMessage(`{"id":"suite1","fullName":"a","status":"passed"}`)},
			want:  SuiteResult{ID: "suite1", FullName: "a", Status: SpecPassed},
		},
		{
			name:  "jasmineDone",
			event: Event{Name: EventJasmineDone, Payload: json.RawMessage(`{"overallStatus":"incomplete","incompleteReason":"fit() or fdescribe() was found","totalTime":12}`)},
			want: &RunDetails{
				OverallStatus:    StatusIncomplete,
				IncompleteReason: "fit() or fdescribe() was found",
				TotalTime:        12,
			},
		},
		{
			name:  "missing payload",
			event: Event{Name: EventSpecStarted},
			want:  SpecResult{},
		},
		{
			name:    "unknown event",
			event:   Event{Name: "bogus"},
			wantErr: true,
		},
		{
			name:    "malformed payload",
			event:   Event{Name: EventSpecDone, Payload: json.RawMessage(`[`)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.event.Decode()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderSeedFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Order
	}{
		{"string seed", `{"random":true,"seed":"00123"}`, Order{Random: true, Seed: "00123"}},
		{"numeric seed", `{"random":true,"seed":98765}`, Order{Random: true, Seed: "98765"}},
		{"null seed", `{"random":false,"seed":null}`, Order{}},
		{"no seed", `{"random":false}`, Order{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Order
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
