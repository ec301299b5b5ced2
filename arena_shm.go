// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

import "code.hybscloud.com/chunkq/internal/shm"

// CreateSharedArena creates the named shared-memory segment with size
// bytes and formats it as an arena. Fails if the name is already in use.
//
// The segment outlives the process until UnlinkSharedArena is called.
func CreateSharedArena(name string, size int) (*Arena, error) {
	seg, err := shm.Create(name, size)
	if err != nil {
		return nil, err
	}
	a, err := NewArena(seg.Bytes())
	if err != nil {
		seg.Close()
		shm.Unlink(name)
		return nil, err
	}
	a.seg = seg
	logInfo("shared arena created", "name", name, "size", size)
	return a, nil
}

// OpenSharedArena maps the named segment created by CreateSharedArena,
// typically in another process.
func OpenSharedArena(name string) (*Arena, error) {
	seg, err := shm.Open(name)
	if err != nil {
		return nil, err
	}
	a, err := AttachArena(seg.Bytes())
	if err != nil {
		seg.Close()
		return nil, err
	}
	a.seg = seg
	logInfo("shared arena opened", "name", name, "size", a.Size())
	return a, nil
}

// UnlinkSharedArena removes the named segment. Processes that still map
// it keep their mapping.
func UnlinkSharedArena(name string) error {
	return shm.Unlink(name)
}
