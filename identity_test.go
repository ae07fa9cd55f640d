package tei

import "testing"

func TestNewIdentity(t *testing.T) {
	tests := []struct {
		n        int
		wantAddr byte
		wantConc string
	}{
		{0, 128, CmdCO},
		{43, Addr43C, CmdSO2},
		{48, Addr48C, CmdCO},
		{42, Addr42C, CmdCO},
		{127, 255, CmdCO},
		{128, 128, CmdCO},
		{0xAB, Addr43C, CmdSO2},
		{0xB0, Addr48C, CmdCO},
		{255, 255, CmdCO},
	}
	for _, tc := range tests {
		id, err := NewIdentity(tc.n)
		if err != nil {
			t.Fatalf("NewIdentity(%d): %s", tc.n, err)
		}
		if id.Address() != tc.wantAddr {
			t.Errorf("NewIdentity(%d).Address() = %#x, want %#x", tc.n, id.Address(), tc.wantAddr)
		}
		if id.ConcentrationCommand() != tc.wantConc {
			t.Errorf("NewIdentity(%d).ConcentrationCommand() = %q, want %q", tc.n, id.ConcentrationCommand(), tc.wantConc)
		}
	}
}

func TestNewIdentity_OutOfRange(t *testing.T) {
	for _, n := range []int{-1, 256, 1000} {
		if _, err := NewIdentity(n); err == nil {
			t.Errorf("NewIdentity(%d): expected error", n)
		}
	}
}
