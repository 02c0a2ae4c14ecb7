// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ojconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateDir_EnvOverride(t *testing.T) {
	t.Setenv("OJ_STATE_DIR", "/tmp/oj-custom")
	assert.Equal(t, "/tmp/oj-custom", StateDir())
}

func TestStateDir_XDGFallback(t *testing.T) {
	t.Setenv("OJ_STATE_DIR", "")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")
	assert.Equal(t, filepath.Join("/tmp/xdg-state", "oj"), StateDir())
}

func TestResolve_LaysOutEveryPath(t *testing.T) {
	dirs := Resolve("/tmp/oj-state")

	assert.Equal(t, "/tmp/oj-state", dirs.StateDir)
	assert.Equal(t, filepath.Join("/tmp/oj-state", "daemon.sock"), dirs.Socket)
	assert.Equal(t, filepath.Join("/tmp/oj-state", "daemon.pid"), dirs.PIDFile)
	assert.Equal(t, filepath.Join("/tmp/oj-state", "daemon.token"), dirs.TokenFile)
	assert.Equal(t, filepath.Join("/tmp/oj-state", "wal", "events.wal"), dirs.WALFile)
	assert.Equal(t, filepath.Join("/tmp/oj-state", "snapshot.json"), dirs.SnapshotFile)
}

func TestEnsureDirs_CreatesExpectedSubdirs(t *testing.T) {
	base := t.TempDir()
	dirs := Resolve(filepath.Join(base, "state"))

	require.NoError(t, EnsureDirs(dirs))

	for _, dir := range []string{dirs.StateDir, filepath.Dir(dirs.WALFile), dirs.WorkspaceDir, dirs.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Breadcrumb dir is deliberately not created here; breadcrumb.Store
	// creates it lazily on first use.
	_, err := os.Stat(dirs.BreadcrumbDir)
	assert.True(t, os.IsNotExist(err))
}
