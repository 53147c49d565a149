package submission

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSagaCompensatesInReverse(t *testing.T) {
	var order []string
	step := func(name string, critical bool, err error) Compensation {
		return Compensation{
			Name:     name,
			Critical: critical,
			Run: func(context.Context) error {
				order = append(order, name)
				return err
			},
		}
	}

	var s Saga
	s.Add(step("delete_record", true, nil))
	s.Add(step("remove_objects", false, errors.New("bucket offline")))
	s.Add(step("notify", false, nil))

	report := s.Compensate(context.Background())

	if diff := cmp.Diff([]string{"notify", "remove_objects", "delete_record"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if report.CriticalFailure() {
		t.Error("non-critical failure flagged as critical")
	}
	if got := len(report.Failed()); got != 1 {
		t.Errorf("Failed() = %d steps, want 1", got)
	}
	if report.Err() == nil {
		t.Error("Err() = nil with a failed step")
	}
}

func TestSagaCriticalFailure(t *testing.T) {
	var s Saga
	s.Add(Compensation{Name: "delete_record", Critical: true, Run: func(context.Context) error {
		return errors.New("permission denied")
	}})

	report := s.Compensate(context.Background())
	if !report.CriticalFailure() {
		t.Error("CriticalFailure() = false")
	}
}

func TestEmptySaga(t *testing.T) {
	var s Saga
	report := s.Compensate(context.Background())
	if len(report.Steps) != 0 || report.Err() != nil || s.Len() != 0 {
		t.Errorf("empty saga report = %+v", report)
	}
}
