package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		env       string
		wantDebug bool
	}{
		{env: envLocal, wantDebug: true},
		{env: envDev, wantDebug: true},
		{env: envProd, wantDebug: false},
		{env: "unknown", wantDebug: false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			log := setupLogger(tt.env)
			assert.Equal(t, tt.wantDebug, log.Enabled(context.Background(), slog.LevelDebug))
			assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
		})
	}
}
