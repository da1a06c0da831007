// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopulationFriendsOf(t *testing.T) {
	pop := Population{
		{ID: 0, Name: "a", Friends: []int{1, 2}},
		{ID: 1, Name: "b", Friends: []int{0}},
		{ID: 2, Name: "c", Friends: []int{0}},
	}

	friends := pop.FriendsOf(0)
	if assert.Len(t, friends, 2) {
		assert.Same(t, pop[1], friends[0])
		assert.Same(t, pop[2], friends[1])
	}
	assert.Empty(t, pop.FriendsOf(1)[1:])
	assert.Nil(t, pop.FriendsOf(-1))
	assert.Nil(t, pop.FriendsOf(3))
	assert.Equal(t, 2, pop.FriendshipCount())
	assert.Equal(t, "a (0)", pop[0].String())
}
