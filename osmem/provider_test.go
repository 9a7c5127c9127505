package osmem

import "testing"
import "unsafe"

func TestNew(t *testing.T) {
	p, err := New("test", 1024*1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Reserved() != 1024*1024 {
		t.Errorf("expected reserved %v, got %v", 1024*1024, p.Reserved())
	}
	if p.Used() != 0 {
		t.Errorf("expected used 0, got %v", p.Used())
	}
}

func TestExtend(t *testing.T) {
	p, err := New("test", 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ptr1, err := p.Extend(1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ptr1 == nil {
		t.Fatalf("expected non-nil pointer")
	}
	if p.Used() != 1024 {
		t.Errorf("expected used 1024, got %v", p.Used())
	}

	ptr2, err := p.Extend(1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uintptr(ptr2)-uintptr(ptr1) != 1024 {
		t.Errorf("expected contiguous extension, got delta %v", uintptr(ptr2)-uintptr(ptr1))
	}
}

func TestExtendExhausted(t *testing.T) {
	p, err := New("test", 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Extend(2048); err != ErrProcessExhausted {
		t.Errorf("expected ErrProcessExhausted, got %v", err)
	}
}

func TestExtendPanicsOnNonPositive(t *testing.T) {
	p, err := New("test", 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on non-positive Extend")
		}
	}()
	p.Extend(0)
}

func TestMapUnmap(t *testing.T) {
	p, err := New("test", 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ptr, err := p.Map(4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ptr == nil {
		t.Fatalf("expected non-nil pointer")
	}

	b := unsafe.Slice((*byte)(ptr), 4096)
	for _, v := range b {
		if v != 0 {
			t.Errorf("expected zero-filled mapping")
			break
		}
	}
	b[0], b[4095] = 0xAB, 0xCD

	if err := p.Unmap(ptr, 4096); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
