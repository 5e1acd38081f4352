package pubsub

import "testing"

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"cmda", "payments", "projects/cmda/topics/payments"},
		{"cmda", " payments ", "projects/cmda/topics/payments"},
		{"cmda", "projects/other/topics/payments", "projects/other/topics/payments"},
		{"", "payments", ""},
		{"cmda", "", ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q want %q", tc.project, tc.name, got, tc.want)
		}
	}
}
