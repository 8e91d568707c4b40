package content

import (
	"encoding/base64"
	"strings"

	"github.com/pulsiveblog/pulsive/internal/apperr"
)

// DecodePayload converts an uploaded media payload to raw bytes. The
// payload is either a bare base64 string or a data URI
// (data:image/png;base64,...). Payloads whose encoded size exceeds
// maxBytes are rejected here, before any network call is attempted.
func DecodePayload(payload string, maxBytes int) ([]byte, error) {
	if payload == "" {
		return nil, apperr.New(apperr.KindValidation, "payload is required")
	}

	encoded := payload
	if i := strings.IndexByte(payload, ','); i != -1 {
		encoded = payload[i+1:]
	}

	if maxBytes > 0 && len(encoded) > maxBytes {
		return nil, apperr.Newf(apperr.KindValidation,
			"payload of %d bytes exceeds the %d byte limit", len(encoded), maxBytes)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "payload is not valid base64", err)
	}
	return raw, nil
}

// EncodePayload converts raw bytes to the transport's base64 encoding.
func EncodePayload(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
