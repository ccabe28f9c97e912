// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"errors"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

const hexDigits = "0123456789abcdef"

func randomHex(rng *rand.Rand, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(hexDigits[rng.Intn(len(hexDigits))])
	}
	return b.String()
}

// randomParams fills every placeholder of an outbound kind with a value of
// its declared width
func randomParams(rng *rand.Rand, def *Definition) map[string]string {
	params := make(map[string]string, len(def.Fields))
	for _, f := range def.Fields {
		params[f.Name] = randomHex(rng, f.Range.Width())
	}
	return params
}

func TestFuzz_EncodeAlwaysValidates(t *testing.T) {
	rng := newFuzzRng(t)
	outbound := Kinds(Outbound)

	for i := 0; i < getFuzzRounds(); i++ {
		def := Lookup(outbound[rng.Intn(len(outbound))])
		params := randomParams(rng, def)

		msg, err := Encode(def.Kind, params)
		if err != nil {
			t.Fatalf("round %d: encode %s: %v", i, def.Name, err)
		}
		if !ValidateChecksum(msg) {
			t.Fatalf("round %d: %s does not validate", i, msg)
		}

		decoded, err := Decode(msg, def.Kind)
		if err != nil {
			t.Fatalf("round %d: decode %s: %v", i, msg, err)
		}
		for _, f := range def.Fields {
			if f.Transform != TransformPlain {
				continue
			}
			expected, _ := ParseHex(params[f.Name])
			if decoded.Fields[f.Name] != expected {
				t.Fatalf("round %d: %s.%s expected %d, got %v", i, def.Name, f.Name, expected, decoded.Fields[f.Name])
			}
		}
	}
}

// Random bodies with a correct checksum never make the decoder panic and
// only fail with the package sentinels.
func TestFuzz_DecodeRandomMessages(t *testing.T) {
	rng := newFuzzRng(t)
	types := []string{"03", "11", "12", "7b", "10", "99"}
	requests := []string{"04", "70", "71", "7b", "00"}

	for i := 0; i < getFuzzRounds(); i++ {
		length := 12 + rng.Intn(30)*2
		body := "55aa" + types[rng.Intn(len(types))] + EncodeUnsigned(length/2+1, 4) + requests[rng.Intn(len(requests))] + randomHex(rng, length-12)
		msg, err := AppendChecksum(body)
		if err != nil {
			t.Fatalf("round %d: %v", i, err)
		}

		decoded, err := Decode(msg, KindAuto)
		if err != nil {
			if !errors.Is(err, ErrUnknownMessageType) {
				t.Fatalf("round %d: unexpected error for %s: %v", i, msg, err)
			}
			continue
		}
		for _, fe := range decoded.Errors {
			if !errors.Is(fe, ErrInvalidEnumValue) && !errors.Is(fe, ErrMalformedHex) {
				t.Fatalf("round %d: unexpected field error %v", i, fe)
			}
		}
	}
}

func TestFuzz_CorruptedChecksumRejected(t *testing.T) {
	rng := newFuzzRng(t)

	for i := 0; i < getFuzzRounds(); i++ {
		body := "55aa11" + randomHex(rng, 4+rng.Intn(20)*2)
		msg, err := AppendChecksum(body)
		if err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		sum, _ := ExtractChecksum(msg)
		bad := body + EncodeUnsigned((sum+1+rng.Intn(255))%256, 2)

		if _, err := Decode(bad, KindAuto); !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("round %d: expected ErrChecksumMismatch for %s, got %v", i, bad, err)
		}
	}
}
