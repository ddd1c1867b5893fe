// Command device_controller is built with -buildmode=c-shared. The library
// exports get_device_description, set_device_state, fault_device_state and
// free_device_string; the device is brought up on the first call.
package main

func main() {}
