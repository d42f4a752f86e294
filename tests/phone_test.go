//go:build integration
// +build integration

package tests

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestAPI_Phone_RequireAuth(t *testing.T) {
	GET(t, "/api/v1/phone/all").Do().AssertStatus(http.StatusUnauthorized)
	POST(t, "/api/v1/phone/outbound-call").
		WithBody(map[string]interface{}{"phone_number": "+15550001111"}).
		Do().
		AssertStatus(http.StatusUnauthorized)
}

func TestAPI_Phone_StreamEndpointsSkipAuth(t *testing.T) {
	id := uuid.New().String()

	// keyed by unguessable call id, reachable without a bearer token
	for _, path := range []string{
		"/api/v1/phone/play-audio/" + id,
		"/api/v1/phone/stream-speaker/" + id,
		"/api/v1/phone/stream-metadata/" + id,
		"/api/v1/phone/stream-audio/" + id,
	} {
		GET(t, path).Do().AssertStatus(http.StatusNotFound)
	}
}

func TestAPI_Phone_InvalidNumberRejected(t *testing.T) {
	token := testAuthToken(t)

	for _, number := range []string{"", "5551234567", "+1 555 123 4567"} {
		POST(t, "/api/v1/phone/outbound-call").
			WithToken(token).
			WithBody(map[string]interface{}{
				"phone_number": number,
				"agent_id":     uuid.New().String(),
				"user_info":    map[string]string{},
			}).
			Do().
			AssertStatus(http.StatusBadRequest).
			AssertError()
	}
}

func TestAPI_Phone_UnknownCallIs404(t *testing.T) {
	token := testAuthToken(t)
	id := uuid.New().String()

	GET(t, "/api/v1/phone/transcript/"+id).WithToken(token).Do().
		AssertStatus(http.StatusNotFound).AssertError()
	POST(t, "/api/v1/phone/hang-up/"+id).WithToken(token).Do().
		AssertStatus(http.StatusNotFound)
}
