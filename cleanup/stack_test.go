package cleanup

import "testing"

func TestRunAllOrdersConsumersBeforeProducers(t *testing.T) {
	s := NewStack()
	var order []string

	s.Push("producer", nil, func() error { order = append(order, "producer"); return nil })
	s.Push("consumer", []string{"producer"}, func() error { order = append(order, "consumer"); return nil })

	if err := s.RunAll(); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(order) != 2 || order[0] != "consumer" || order[1] != "producer" {
		t.Fatalf("order = %v, want [consumer producer]", order)
	}
}

func TestRunAllIsIdempotent(t *testing.T) {
	s := NewStack()
	var calls int
	s.Push("a", nil, func() error { calls++; return nil })

	s.RunAll()
	s.RunAll()

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRunAllChainOfThree(t *testing.T) {
	s := NewStack()
	var order []string
	s.Push("root", nil, func() error { order = append(order, "root"); return nil })
	s.Push("mid", []string{"root"}, func() error { order = append(order, "mid"); return nil })
	s.Push("leaf", []string{"mid"}, func() error { order = append(order, "leaf"); return nil })

	if err := s.RunAll(); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	want := []string{"leaf", "mid", "root"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRunAllCollectsFirstErrorButRunsEverything(t *testing.T) {
	s := NewStack()
	var ran []string
	s.Push("a", nil, func() error { ran = append(ran, "a"); return errBoom })
	s.Push("b", []string{"a"}, func() error { ran = append(ran, "b"); return nil })

	err := s.RunAll()
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(ran) != 2 {
		t.Fatalf("ran = %v, want both actions to still run", ran)
	}
}

func TestPushDuplicateNameFails(t *testing.T) {
	s := NewStack()
	s.Push("a", nil, func() error { return nil })
	if err := s.Push("a", nil, func() error { return nil }); err == nil {
		t.Fatal("expected error for duplicate push")
	}
}

func TestRunPartialCleansOnlyEligibleProducers(t *testing.T) {
	s := NewStack()
	var order []string
	s.Push("producer", nil, func() error { order = append(order, "producer"); return nil })
	s.Push("consumerA", []string{"producer"}, func() error { order = append(order, "consumerA"); return nil })
	s.Push("consumerB", []string{"producer"}, func() error { order = append(order, "consumerB"); return nil })

	plan, err := s.RunPartial([]string{"consumerA"}, false)
	if err != nil {
		t.Fatalf("RunPartial: %v", err)
	}
	if len(plan) != 1 || plan[0] != "consumerA" {
		t.Fatalf("plan = %v, want [consumerA] since consumerB still depends on producer", plan)
	}
	if s.IsCleanedUp("producer") {
		t.Fatal("producer should not be cleaned up while consumerB is still pending")
	}

	plan2, err := s.RunPartial([]string{"consumerB"}, false)
	if err != nil {
		t.Fatalf("RunPartial: %v", err)
	}
	if len(plan2) != 2 || plan2[0] != "consumerB" || plan2[1] != "producer" {
		t.Fatalf("plan2 = %v, want [consumerB producer] now that all consumers are cleaned", plan2)
	}
}

func TestRunPartialDryRunDoesNotExecute(t *testing.T) {
	s := NewStack()
	var calls int
	s.Push("a", nil, func() error { calls++; return nil })

	plan, err := s.RunPartial([]string{"a"}, true)
	if err != nil {
		t.Fatalf("RunPartial: %v", err)
	}
	if len(plan) != 1 || plan[0] != "a" {
		t.Fatalf("plan = %v, want [a]", plan)
	}
	if calls != 0 {
		t.Fatal("dry run must not execute actions")
	}
	if s.IsCleanedUp("a") {
		t.Fatal("dry run must not mark actions cleaned up")
	}
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
