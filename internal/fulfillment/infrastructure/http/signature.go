package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signed payload scheme: "Gateway-Signature: t=<unix>,v1=<hex hmac>" where the
// mac covers "<t>.<body>" with the shared webhook secret.

const signatureTolerance = 5 * time.Minute

var (
	errBadSignatureHeader = errors.New("malformed signature header")
	errStaleSignature     = errors.New("signature timestamp outside tolerance")
	errSignatureMismatch  = errors.New("signature mismatch")
)

func verifySignature(secret, header string, body []byte, now time.Time) error {
	var ts int64
	var sig []byte

	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return errBadSignatureHeader
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return errBadSignatureHeader
			}
			ts = n
		case "v1":
			b, err := hex.DecodeString(v)
			if err != nil {
				return errBadSignatureHeader
			}
			sig = b
		}
	}
	if ts == 0 || len(sig) == 0 {
		return errBadSignatureHeader
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return errStaleSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return errSignatureMismatch
	}
	return nil
}
