package cloudqueue

import "testing"

func TestCheckoutTableCheckOutAndCheckIn(t *testing.T) {
	tab := newCheckoutTable()
	key := checkoutKey([]byte("payload"))

	tab.checkOut(key, checkoutReceipt{ReceiptID: "r1"}, "Q", false)

	handle, ok := tab.checkIn(key)
	if !ok {
		t.Fatalf("expected check-in to succeed")
	}
	if handle.ReceiptID != "r1" || handle.Queue != "Q" {
		t.Fatalf("unexpected handle: %+v", handle)
	}

	if _, ok := tab.checkIn(key); ok {
		t.Fatalf("expected the entry to be gone after its only receipt was checked in")
	}
}

func TestCheckoutTableStacksValueEqualReceipts(t *testing.T) {
	tab := newCheckoutTable()
	key := checkoutKey([]byte("payload"))

	tab.checkOut(key, checkoutReceipt{ReceiptID: "r1"}, "Q", false)
	tab.checkOut(key, checkoutReceipt{ReceiptID: "r2"}, "Q", false)

	first, ok := tab.checkIn(key)
	if !ok || first.ReceiptID != "r2" {
		t.Fatalf("expected LIFO check-in to return the most recent receipt first, got %+v", first)
	}

	second, ok := tab.checkIn(key)
	if !ok || second.ReceiptID != "r1" {
		t.Fatalf("expected the remaining receipt to be returned next, got %+v", second)
	}

	if _, ok := tab.checkIn(key); ok {
		t.Fatalf("expected the entry to be empty after both receipts were checked in")
	}
}

func TestCheckoutTableRelink(t *testing.T) {
	tab := newCheckoutTable()
	oldKey := checkoutKey([]byte("wrapper-bytes"))
	newKey := checkoutKey([]byte("unwrapped-bytes"))

	tab.checkOut(oldKey, checkoutReceipt{ReceiptID: "r1"}, "Q", true)
	tab.relink(oldKey, newKey)

	if _, ok := tab.checkIn(oldKey); ok {
		t.Fatalf("expected the old key to be gone after relink")
	}

	handle, ok := tab.checkIn(newKey)
	if !ok || handle.ReceiptID != "r1" {
		t.Fatalf("expected the relinked key to hold the original receipt, got %+v, ok=%v", handle, ok)
	}
}

func TestCheckoutTableSnapshotKeys(t *testing.T) {
	tab := newCheckoutTable()
	tab.checkOut(checkoutKey([]byte("a")), checkoutReceipt{ReceiptID: "r1"}, "Q", false)
	tab.checkOut(checkoutKey([]byte("b")), checkoutReceipt{ReceiptID: "r2"}, "Q", false)

	keys := tab.snapshotKeys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}
