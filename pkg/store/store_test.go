package store

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// TestNewStoreRejectsComputedCycle covers testable property 7:
// registration-time ComputedCycle rejection, before any Set is ever
// called.
func TestNewStoreRejectsComputedCycle(t *testing.T) {
	Convey("Given a and b each computed from the other", t, func() {
		props := Properties{
			{Name: "a", PropertyConfig: PropertyConfig{Computed: "_computeA(b)"}},
			{Name: "b", PropertyConfig: PropertyConfig{Computed: "_computeB(a)"}},
		}
		methods := Methods{
			"_computeA": func(args ...interface{}) interface{} { return args[0] },
			"_computeB": func(args ...interface{}) interface{} { return args[0] },
		}

		Convey("NewStore rejects it with a ComputedCycle error", func() {
			_, err := NewStore(props, methods)

			So(err, ShouldNotBeNil)
			storeErr, ok := err.(*StoreError)
			So(ok, ShouldBeTrue)
			So(storeErr.Kind, ShouldEqual, KindComputedCycle)
		})
	})
}

// TestStaticComputedRunsOnceAtRegistration covers testable property 8: a
// fully-literal computed expression is evaluated once, at registration,
// and carries no trigger path — changing an unrelated property never
// re-invokes it.
func TestStaticComputedRunsOnceAtRegistration(t *testing.T) {
	Convey("Given a computed property whose signature is all literals", t, func() {
		calls := 0
		methods := Methods{
			"_greet": func(args ...interface{}) interface{} {
				calls++
				return args[0]
			},
			"_noop": func(args ...interface{}) interface{} { return nil },
		}
		props := Properties{
			{Name: "greeting", PropertyConfig: PropertyConfig{Computed: "_greet('hi')"}},
			{Name: "unrelated", PropertyConfig: PropertyConfig{Observer: "_noop"}},
		}

		Convey("it evaluates once during NewStore, before Ready is even called", func() {
			s, err := NewStore(props, methods)
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 1)
			v, _ := s.Get("greeting")
			So(v, ShouldEqual, "hi")

			Convey("writing an unrelated property never re-invokes it", func() {
				s.Ready()
				s.Set("unrelated", "whatever")

				So(calls, ShouldEqual, 1)
				v, _ := s.Get("greeting")
				So(v, ShouldEqual, "hi")
			})
		})
	})
}

// TestExpressionComputedParticipatesInFixpoint covers testable property 9:
// an "=expr" computed property participates in the same fixpoint and
// observer-ordering guarantees as a method-form computed property.
func TestExpressionComputedParticipatesInFixpoint(t *testing.T) {
	Convey("Given sum computed as '=a+b', observed alongside a and b", t, func() {
		var changedKeys []string
		methods := Methods{
			"_somePropChanged": func(args ...interface{}) interface{} {
				changedKeys = append(changedKeys, args[2].(string))
				return nil
			},
		}
		props := Properties{
			{Name: "a", PropertyConfig: PropertyConfig{Observer: "_somePropChanged"}},
			{Name: "b", PropertyConfig: PropertyConfig{Observer: "_somePropChanged"}},
			{Name: "sum", PropertyConfig: PropertyConfig{Computed: "=a+b", Observer: "_somePropChanged"}},
		}
		s, err := NewStore(props, methods)
		So(err, ShouldBeNil)
		s.Ready()

		Convey("setting both dependencies resolves sum and dispatches in order", func() {
			changedKeys = nil
			s.SetProperties([]PropertyValue{
				{Name: "a", Value: float64(2)},
				{Name: "b", Value: float64(3)},
			})

			So(changedKeys, ShouldResemble, []string{"a", "b", "sum"})
			sum, _ := s.Get("sum")
			So(sum, ShouldEqual, float64(5))
		})
	})
}
