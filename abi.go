package main

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

// Every string returned below is a fresh malloc'd copy owned by the caller,
// who releases it with free_device_string.

//export get_device_description
func get_device_description() *C.char {
	return C.CString(hostDescribe())
}

//export set_device_state
func set_device_state() *C.char {
	return C.CString(hostAdvance())
}

//export fault_device_state
func fault_device_state() *C.char {
	return C.CString(hostFault(FaultReason))
}

//export free_device_string
func free_device_string(s *C.char) {
	if s == nil {
		return
	}
	C.free(unsafe.Pointer(s))
}
