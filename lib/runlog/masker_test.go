// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package runlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestMasker(t *testing.T) {
	t.Parallel()

	t.Run("masks a secret in a complete line", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		masker := NewMasker(&out, [][]byte{[]byte("syt_member_token")})
		if _, err := masker.Write([]byte("login with syt_member_token done\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := masker.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if got, want := out.String(), "login with *** done\n"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("masks a secret split across writes", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		masker := NewMasker(&out, [][]byte{[]byte("syt_member_token")})
		// Process stdio flushes at arbitrary boundaries; the secret
		// arrives in three pieces within one line.
		for _, chunk := range []string{"token: syt_m", "ember_t", "oken end\n"} {
			if _, err := masker.Write([]byte(chunk)); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
		if got, want := out.String(), "token: *** end\n"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("masks multiple secrets and repeats", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		masker := NewMasker(&out, [][]byte{[]byte("alpha-secret"), []byte("beta-secret")})
		if _, err := masker.Write([]byte("alpha-secret beta-secret alpha-secret\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if got, want := out.String(), "*** *** ***\n"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("longer secret masks before its substring", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		masker := NewMasker(&out, [][]byte{[]byte("token"), []byte("token-extended")})
		if _, err := masker.Write([]byte("a token-extended b token c\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if got, want := out.String(), "a *** b *** c\n"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("close flushes the unterminated final line", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		masker := NewMasker(&out, [][]byte{[]byte("secret-value")})
		if _, err := masker.Write([]byte("no newline: secret-value")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if out.Len() != 0 {
			t.Fatalf("output flushed before newline or Close: %q", out.String())
		}
		if err := masker.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if got, want := out.String(), "no newline: ***"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("multiple lines in one write", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		masker := NewMasker(&out, [][]byte{[]byte("hush")})
		if _, err := masker.Write([]byte("one hush\ntwo hush\nthree hu")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if got, want := out.String(), "one ***\ntwo ***\n"; got != want {
			t.Errorf("flushed output = %q, want %q", got, want)
		}
		if err := masker.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if got, want := out.String(), "one ***\ntwo ***\nthree hu"; got != want {
			t.Errorf("final output = %q, want %q", got, want)
		}
	})

	t.Run("empty secrets are ignored", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		masker := NewMasker(&out, [][]byte{nil, []byte(""), []byte("real")})
		if _, err := masker.Write([]byte("a real b\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if got, want := out.String(), "a *** b\n"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("no secrets passes through", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		masker := NewMasker(&out, nil)
		if _, err := masker.Write([]byte("anything goes\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if got, want := out.String(), "anything goes\n"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("write reports full consumption", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		masker := NewMasker(&out, [][]byte{[]byte("s")})
		data := []byte("partial with no newline")
		n, err := masker.Write(data)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		if n != len(data) {
			t.Errorf("n = %d, want %d", n, len(data))
		}
	})

	t.Run("forced flush never leaks a secret fragment", func(t *testing.T) {
		t.Parallel()

		secret := []byte("SECRET_TOKEN_VALUE")
		var out bytes.Buffer
		masker := NewMasker(&out, [][]byte{secret})

		// One huge newline-free write ending in a secret prefix forces
		// a flush; the prefix must be held back, not emitted.
		data := bytes.Repeat([]byte("x"), maxBuffered+1)
		data = append(data, secret[:10]...)
		if _, err := masker.Write(data); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if out.Len() == 0 {
			t.Fatal("oversized buffer was not flushed")
		}
		if bytes.Contains(out.Bytes(), secret[:4]) {
			t.Error("flushed output contains a secret fragment")
		}

		// The rest of the secret arrives; the reassembled occurrence
		// must be masked.
		rest := append(append([]byte(nil), secret[10:]...), []byte(" tail\n")...)
		if _, err := masker.Write(rest); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := masker.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if !strings.HasSuffix(out.String(), "*** tail\n") {
			t.Errorf("output tail = %q, want masked suffix", out.String()[len(out.String())-30:])
		}
		if bytes.Contains(out.Bytes(), secret) {
			t.Error("output contains the full secret")
		}
	})
}
