// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"testing"
)

func TestDecodeBinaryDateTime(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want DateTime
		n    int
	}{
		{"zero", []byte{0}, DateTime{}, 1},
		{"date only", []byte{4, 0xe6, 0x07, 6, 15}, DateTime{Year: 2022, Month: 6, Day: 15}, 5},
		{"date+time", []byte{7, 0xe6, 0x07, 6, 15, 13, 30, 45},
			DateTime{Year: 2022, Month: 6, Day: 15, Hour: 13, Minute: 30, Second: 45}, 8},
		{"with micros", []byte{11, 0xe6, 0x07, 6, 15, 13, 30, 45, 0xe0, 0x93, 0x04, 0x00},
			DateTime{Year: 2022, Month: 6, Day: 15, Hour: 13, Minute: 30, Second: 45, Microsecond: 300000}, 12},
	}
	for _, tt := range tests {
		got, n, err := decodeBinaryDateTime(tt.in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want || n != tt.n {
			t.Errorf("%s: decodeBinaryDateTime() = (%+v, %d), want (%+v, %d)", tt.name, got, n, tt.want, tt.n)
		}
	}
}

func TestEncodeDecodeDateTimeRoundTrip(t *testing.T) {
	tests := []DateTime{
		{},
		{Year: 2024, Month: 1, Day: 1},
		{Year: 2024, Month: 1, Day: 1, Hour: 23, Minute: 59, Second: 59},
		{Year: 2024, Month: 1, Day: 1, Hour: 23, Minute: 59, Second: 59, Microsecond: 123456},
	}
	for _, dt := range tests {
		encoded := encodeBinaryDateTime(dt)
		got, n, err := decodeBinaryDateTime(encoded)
		if err != nil {
			t.Fatalf("round trip error: %v", err)
		}
		if n != len(encoded) {
			t.Errorf("decodeBinaryDateTime() consumed %d bytes, want %d", n, len(encoded))
		}
		if got != dt {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, dt)
		}
	}
}

func TestDecodeBinaryDuration(t *testing.T) {
	in := []byte{8, 1, 2, 0, 0, 0, 10, 20, 30}
	got, n, err := decodeBinaryDuration(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Duration{Negative: true, Days: 2, Hour: 10, Minute: 20, Second: 30}
	if got != want || n != 9 {
		t.Errorf("decodeBinaryDuration() = (%+v, %d), want (%+v, 9)", got, n, want)
	}
}

func TestEncodeDecodeDurationRoundTrip(t *testing.T) {
	tests := []Duration{
		{},
		{Days: 1, Hour: 2, Minute: 3, Second: 4},
		{Negative: true, Days: 1, Hour: 2, Minute: 3, Second: 4, Microsecond: 500000},
	}
	for _, d := range tests {
		encoded := encodeBinaryDuration(d)
		got, n, err := decodeBinaryDuration(encoded)
		if err != nil {
			t.Fatalf("round trip error: %v", err)
		}
		if n != len(encoded) {
			t.Errorf("decodeBinaryDuration() consumed %d bytes, want %d", n, len(encoded))
		}
		if got != d {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, d)
		}
	}
}

func TestDateTimeString(t *testing.T) {
	tests := []struct {
		in   DateTime
		want string
	}{
		{DateTime{Year: 2022, Month: 6, Day: 15}, "2022-06-15"},
		{DateTime{Year: 2022, Month: 6, Day: 15, Hour: 13, Minute: 30, Second: 45}, "2022-06-15 13:30:45"},
		{DateTime{Year: 2022, Month: 6, Day: 15, Hour: 13, Minute: 30, Second: 45, Microsecond: 300000},
			"2022-06-15 13:30:45.300000"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
