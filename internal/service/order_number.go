package service

import (
	"crypto/rand"
	"fmt"
	"sync/atomic"
)

const orderSuffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// OrderNumbers generates ORD<unix-ms><seq><suffix>. The counter keeps
// numbers distinct inside one process even within the same millisecond;
// the random suffix separates processes.
type OrderNumbers struct {
	seq   atomic.Uint32
	clock Clock
}

func NewOrderNumbers(clock Clock) *OrderNumbers {
	if clock == nil {
		clock = systemClock
	}
	return &OrderNumbers{clock: clock}
}

func (g *OrderNumbers) Next() string {
	seq := g.seq.Add(1) % 10000
	return fmt.Sprintf("ORD%d%04d%s", g.clock().UnixMilli(), seq, randomSuffix(4))
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("order number suffix: %v", err))
	}
	for i, b := range buf {
		buf[i] = orderSuffixAlphabet[int(b)%len(orderSuffixAlphabet)]
	}
	return string(buf)
}

