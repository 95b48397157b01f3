package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		name   string
		method string
		want   string
	}{
		{name: "known command", method: "Runtime.evaluate", want: "Runtime.evaluate"},
		{name: "known event", method: "Network.requestWillBeSent", want: "Network.requestWillBeSent"},
		{name: "unknown domain", method: "Overlay.highlightNode", want: OtherLabel},
		{name: "missing method", method: "Runtime.", want: OtherLabel},
		{name: "no dot", method: "evaluate", want: OtherLabel},
		{name: "empty", method: "", want: OtherLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMethod(tt.method))
		})
	}
}
