// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shm maps named shared-memory segments.
//
// A segment is a file under [Dir] (tmpfs /dev/shm on Linux) mapped
// MAP_SHARED into the calling process. Every process opening the same name
// sees the same bytes, usually at a different address.
package shm
