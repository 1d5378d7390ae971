package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	tickets := []TechnicianTicket{
		{Ticket: Ticket{ID: "t1", Status: DisplayStatusInProgress}},
		{Ticket: Ticket{ID: "t2", Status: DisplayStatusInProgress}},
		{Ticket: Ticket{ID: "t3", Status: DisplayStatusWorkingOn}},
		{Ticket: Ticket{ID: "t4", Status: DisplayStatusResolved}},
		{Ticket: Ticket{ID: "t5", Status: DisplayStatusClosed}},
	}

	stats := ComputeStats(tickets)

	assert.Equal(t, 2, stats.Assigned)
	assert.Equal(t, 1, stats.Working)
	assert.Equal(t, 1, stats.Resolved)
	// Total counts every fetched ticket, including ones outside the three
	// buckets.
	assert.Equal(t, 5, stats.Total)
}

func TestComputeStatsEmpty(t *testing.T) {
	assert.Equal(t, DashboardStats{}, ComputeStats(nil))
}
