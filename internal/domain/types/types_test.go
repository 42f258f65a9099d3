package types_test

import (
	"encoding/json"
	"sort"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pagekit/internal/domain/types"
)

func TestPayloadKeys(t *testing.T) {
	Convey("Given a payload", t, func() {
		p := types.Payload{"b": 1, "a": nil}

		Convey("Then Keys lists every key", func() {
			keys := p.Keys()
			sort.Strings(keys)
			So(keys, ShouldResemble, []string{"a", "b"})
		})

		Convey("Then a nil payload has no keys", func() {
			So(types.Payload(nil).Keys(), ShouldBeEmpty)
		})
	})
}

func TestEnvelope(t *testing.T) {
	Convey("Given response bodies", t, func() {
		Convey("When an envelope holds a nil value", func() {
			b, err := json.Marshal(types.Envelope{})

			Convey("Then data is still present as null", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `{"data":null}`)
			})
		})

		Convey("When an error body is encoded", func() {
			b, err := json.Marshal(types.ErrorBody{Code: "bad_request", Message: "invalid data"})

			Convey("Then no data field is emitted", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldNotContainSubstring, `"data"`)
			})
		})
	})
}
