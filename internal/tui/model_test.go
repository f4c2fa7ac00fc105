package tui

import "testing"

func TestGuard(t *testing.T) {
	tests := []struct {
		requested     Route
		authenticated bool
		want          Route
	}{
		{RouteLogin, false, RouteLogin},
		{RouteUploads, false, RouteLogin},
		{RouteLogin, true, RouteUploads},
		{RouteUploads, true, RouteUploads},
	}
	for _, tt := range tests {
		if got := Guard(tt.requested, tt.authenticated); got != tt.want {
			t.Errorf("Guard(%v, %v) = %v, want %v", tt.requested, tt.authenticated, got, tt.want)
		}
	}
}

func TestRouteString(t *testing.T) {
	if got := RouteUploads.String(); got != "dashboard/uploads" {
		t.Errorf("RouteUploads.String() = %q", got)
	}
	if got := Route(9).String(); got != "unknown" {
		t.Errorf("Route(9).String() = %q", got)
	}
}
