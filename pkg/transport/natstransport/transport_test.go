// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Connect/Publish/Subscribe against a live NATS server are exercised by
// integration testing outside this repo: the example pack carries no
// embedded-NATS-server test dependency, so these tests cover the parts
// reachable without a live connection.
package natstransport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectRequiresAddress(t *testing.T) {
	_, err := Connect(Config{})
	assert.Error(t, err)
}

func TestSubjectIsNamespacedPerDataset(t *testing.T) {
	assert.Equal(t, "simcore.update.traffic", subject("traffic"))
	assert.Equal(t, "simcore.update.pedestrians", subject("pedestrians"))
}
