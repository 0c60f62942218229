package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNameFor(t *testing.T) {
	assert.Equal(t, "orders", tableNameFor("/landing/orders.csv"))
	assert.Equal(t, "daily_orders_2024", tableNameFor("/landing/Daily Orders-2024.csv"))
	assert.Equal(t, "dw_orders", tableNameFor("dw_orders.csv"))
}

func TestProcessorClaim(t *testing.T) {
	p := newProcessor(nil, &workerFlags{}, 2, nil)
	assert.True(t, p.claim("/landing/a.csv"))
	assert.False(t, p.claim("/landing/a.csv"))
	assert.True(t, p.claim("/landing/b.csv"))
}
