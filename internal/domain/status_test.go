package domain

import "testing"

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		from   Status
		to     Status
		expect bool
	}{
		// From Active
		{"Active -> Closed", StatusActive, StatusClosed, true},
		{"Active -> Deleted", StatusActive, StatusDeleted, true},
		{"Active -> Archived", StatusActive, StatusArchived, false},

		// From Closed
		{"Closed -> Active", StatusClosed, StatusActive, true},
		{"Closed -> Deleted", StatusClosed, StatusDeleted, true},
		{"Closed -> Archived", StatusClosed, StatusArchived, false},

		// From Deleted
		{"Deleted -> Archived", StatusDeleted, StatusArchived, true},
		{"Deleted -> Active", StatusDeleted, StatusActive, false},
		{"Deleted -> Closed", StatusDeleted, StatusClosed, false},

		// From Archived (terminal)
		{"Archived -> Active", StatusArchived, StatusActive, false},
		{"Archived -> Closed", StatusArchived, StatusClosed, false},
		{"Archived -> Deleted", StatusArchived, StatusDeleted, false},
		{"Archived -> Archived", StatusArchived, StatusArchived, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.CanTransitionTo(tt.to)
			if got != tt.expect {
				t.Errorf("CanTransitionTo(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expect)
			}
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	for _, s := range AllStatuses() {
		if got := s.IsTerminal(); got != (s == StatusArchived) {
			t.Errorf("%s.IsTerminal() = %v", s, got)
		}
	}
}

func TestStatus_VisibleByDefault(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusActive, true},
		{StatusClosed, true},
		{StatusDeleted, false},
		{StatusArchived, false},
	}
	for _, tt := range tests {
		if got := tt.status.VisibleByDefault(); got != tt.want {
			t.Errorf("%s.VisibleByDefault() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    Status
		wantErr bool
	}{
		{"Active", StatusActive, false},
		{"closed", StatusClosed, false},
		{" DELETED ", StatusDeleted, false},
		{"archived", StatusArchived, false},
		{"done", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStatus(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
