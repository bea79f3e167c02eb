package core

import "testing"

func TestZeroAndOneAreImmutable(t *testing.T) {
	r := NewRegisters()
	r.Set(RegZero, 42)
	r.Set(RegOne, 42)
	if r.Get(RegZero) != 0 {
		t.Fatalf("ZERO must always read 0, got %d", r.Get(RegZero))
	}
	if r.Get(RegOne) != 1 {
		t.Fatalf("ONE must always read 1, got %d", r.Get(RegOne))
	}
}

func TestRegistersResetRestoresConstants(t *testing.T) {
	r := NewRegisters()
	r.Set(RegPC, 400)
	r.Reset()
	if r.Get(RegPC) != 0 {
		t.Fatalf("expected PC cleared after Reset, got %d", r.Get(RegPC))
	}
	if r.Get(RegOne) != 1 {
		t.Fatalf("expected ONE seeded after Reset, got %d", r.Get(RegOne))
	}
}

func TestSnapshotRestoreAllRoundTrip(t *testing.T) {
	r := NewRegisters()
	r.Set(RegPC, 8)
	r.Set(RegSP, 128)
	r.Set(RegIndex(20), 777)
	snap := r.Snapshot()

	r.Set(RegPC, 999)
	r.Set(RegIndex(20), 0)

	r.RestoreAll(snap)
	if r.Get(RegPC) != 8 || r.Get(RegSP) != 128 || r.Get(RegIndex(20)) != 777 {
		t.Fatalf("RestoreAll did not reproduce the snapshot: pc=%d sp=%d r20=%d",
			r.Get(RegPC), r.Get(RegSP), r.Get(RegIndex(20)))
	}
}

func TestSnapshotCapturesZeroAndOneAsLiveValues(t *testing.T) {
	r := NewRegisters()
	snap := r.Snapshot()
	if snap[RegZero] != 0 || snap[RegOne] != 1 {
		t.Fatalf("snapshot must carry ZERO=0, ONE=1, got zero=%d one=%d", snap[RegZero], snap[RegOne])
	}
}
