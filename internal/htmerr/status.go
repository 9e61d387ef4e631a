// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package htmerr

// Backend status codes, named after a handful of Vulkan/vgpu result
// codes. The only one the engine currently returns is StatusUnknown,
// from a dispatch of a kernel name the program does not hold; the GPU
// backend surfaces none of them. Kept as a table separate
// from control flow (Design Note "Error conversion") so callers never
// need to switch on a raw backend code themselves.
const (
	StatusSuccess = iota
	StatusDeviceLost
	StatusOutOfHostMemory
	StatusOutOfDeviceMemory
	StatusInitializationFailed
	StatusShaderModuleCreationFailed
	StatusInvalidBufferSize
	StatusInvalidWorkDimension
	StatusUnknown
)

var statusTable = map[int]string{
	StatusSuccess:                    "Success",
	StatusDeviceLost:                 "Device lost",
	StatusOutOfHostMemory:            "Out of host memory",
	StatusOutOfDeviceMemory:          "Out of device memory",
	StatusInitializationFailed:       "Device/context initialization failed",
	StatusShaderModuleCreationFailed: "Shader module creation failed",
	StatusInvalidBufferSize:          "Invalid buffer size",
	StatusInvalidWorkDimension:       "Invalid work dimension",
	StatusUnknown:                    "Unknown backend error",
}

// StatusName translates a backend status code into a human-readable
// string, exactly as clregion.cpp's getCLError did for OpenCL's cl_int
// codes.
func StatusName(code int) string {
	if name, ok := statusTable[code]; ok {
		return name
	}
	return statusTable[StatusUnknown]
}
