package config

import "testing"

func TestDefaults(t *testing.T) {
	c := Defaults()
	if c.Scheduler.AnnealAlpha != 0.9 {
		t.Errorf("AnnealAlpha = %v, want 0.9", c.Scheduler.AnnealAlpha)
	}
	if c.Pruner.TargetSparsity != 0.9 {
		t.Errorf("TargetSparsity = %v, want 0.9", c.Pruner.TargetSparsity)
	}
	if c.Koopman.Rank != 50 {
		t.Errorf("Rank = %v, want 50", c.Koopman.Rank)
	}
	if errs := c.Validate(); len(errs) != 0 {
		t.Errorf("Validate() on defaults = %v, want none", errs)
	}
}

func TestApplyUpdates(t *testing.T) {
	c := Defaults()
	errs := c.ApplyUpdates(map[string]string{
		"anneal_t0":     "3.5",
		"k_anneal":      "20",
		"unknown_field": "x",
	})
	if len(errs) != 1 {
		t.Fatalf("ApplyUpdates errs = %v, want 1 error", errs)
	}
	if c.Scheduler.AnnealT0 != 3.5 {
		t.Errorf("AnnealT0 = %v, want 3.5", c.Scheduler.AnnealT0)
	}
	if c.Scheduler.KAnneal != 20 {
		t.Errorf("KAnneal = %v, want 20", c.Scheduler.KAnneal)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	c := Defaults()
	c.Scheduler.AnnealAlpha = 1.5
	c.Pruner.TargetSparsity = 0
	if errs := c.Validate(); len(errs) != 2 {
		t.Errorf("Validate() = %v, want 2 errors", errs)
	}
}
