package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	if err := registry.Register(jobA); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := registry.Register(jobB); err != nil {
		t.Fatalf("register b: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry, err := NewRegistry(&stubJob{name: "abandon-expired-intents"}, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if err := registry.Register(&stubJob{name: "abandon-expired-intents"}); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if len(registry.Jobs()) != 1 {
		t.Fatalf("expected 1 job, got %d", len(registry.Jobs()))
	}
}

func TestNewRegistryRejectsDuplicateNames(t *testing.T) {
	registry, err := NewRegistry(&stubJob{name: "requery-stale-intents"}, &stubJob{name: "requery-stale-intents"})
	if err == nil {
		t.Fatal("expected duplicate name error")
	}
	if registry != nil {
		t.Fatalf("expected no registry, got %d jobs", len(registry.Jobs()))
	}
}
