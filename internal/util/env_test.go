package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"maybe", true, true},
		{"maybe", false, false},
		{" true ", false, true},
	}
	for _, tc := range cases {
		t.Setenv("CAREFLOW_TEST_BOOL", tc.value)
		if got := ParseBoolEnv("CAREFLOW_TEST_BOOL", tc.defaultValue); got != tc.want {
			t.Errorf("ParseBoolEnv(%q, %t) = %t, want %t", tc.value, tc.defaultValue, got, tc.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	cases := []struct {
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"30m", time.Hour, 30 * time.Minute},
		{"1h30m", time.Hour, 90 * time.Minute},
		{" 45s ", time.Hour, 45 * time.Second},
		{"", time.Hour, time.Hour},
		{"soon", time.Hour, time.Hour},
		{"30", time.Hour, time.Hour},
	}
	for _, tc := range cases {
		t.Setenv("CAREFLOW_TEST_DURATION", tc.value)
		if got := ParseDurationEnv("CAREFLOW_TEST_DURATION", tc.defaultValue); got != tc.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
