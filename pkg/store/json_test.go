package store

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestToJSONPreservesDeclarationOrder(t *testing.T) {
	Convey("Given properties declared out of alphabetical order", t, func() {
		props := Properties{
			{Name: "zebra", PropertyConfig: PropertyConfig{}},
			{Name: "apple", PropertyConfig: PropertyConfig{}},
			{Name: "mango", PropertyConfig: PropertyConfig{}},
		}
		s, err := NewStore(props, nil)
		So(err, ShouldBeNil)
		s.Ready()
		s.Set("zebra", "z")
		s.Set("apple", "a")
		s.Set("mango", "m")

		Convey("ToJSON emits keys in declaration order, not sorted", func() {
			raw, err := s.ToJSON()
			So(err, ShouldBeNil)
			out := string(raw)

			zi := strings.Index(out, `"zebra"`)
			ai := strings.Index(out, `"apple"`)
			mi := strings.Index(out, `"mango"`)
			So(zi, ShouldBeLessThan, ai)
			So(ai, ShouldBeLessThan, mi)
		})
	})
}

func TestToJSONIncludesBookkeepingKeysSorted(t *testing.T) {
	Convey("Given an Array property with splice bookkeeping", t, func() {
		s, err := NewStore(touristsProperties(), nameFormMethods(&[]string{}))
		So(err, ShouldBeNil)
		s.Ready()
		s.Push("tourists", float64(1))

		Convey("ToJSON includes the extra keys after declared properties", func() {
			raw, err := s.ToJSON()
			So(err, ShouldBeNil)
			out := string(raw)

			ti := strings.Index(out, `"tourists"`)
			li := strings.Index(out, `"tourists.length"`)
			si := strings.Index(out, `"tourists.splices"`)
			So(ti, ShouldBeLessThan, li)
			So(ti, ShouldBeLessThan, si)
			// sorted lexically among themselves
			So(li, ShouldBeLessThan, si)
		})
	})
}

func TestToYAMLRoundTripsScalarValues(t *testing.T) {
	Convey("Given a simple store", t, func() {
		props := Properties{{Name: "name", PropertyConfig: PropertyConfig{}}}
		s, err := NewStore(props, nil)
		So(err, ShouldBeNil)
		s.Ready()
		s.Set("name", "Ivan")

		Convey("ToYAML renders the value", func() {
			raw, err := s.ToYAML()
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, "name: Ivan")
		})
	})
}
