package pluginabi

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/OCAP2/extension/v5/internal/dispatcher"
)

//export RVExtensionVersion
func RVExtensionVersion(output *C.char, outputsize C.size_t) {
	replyToHost(Config.version, output, outputsize)
}

//export RVExtension
func RVExtension(output *C.char, outputsize C.size_t, input *C.char) {
	command := C.GoString(input)
	commandPrefix := strings.Split(command, "|")[0]

	if Config.dispatcher == nil {
		replyToHost(formatDispatchResponse(nil, fmt.Errorf("no dispatcher configured")), output, outputsize)
		return
	}

	target := command
	if !Config.dispatcher.HasHandler(command) && Config.dispatcher.HasHandler(commandPrefix) {
		target = commandPrefix
	}

	if !Config.dispatcher.HasHandler(target) {
		replyToHost(formatDispatchResponse(nil, fmt.Errorf("no handler registered for %s", target)), output, outputsize)
		return
	}

	result, err := dispatch(target, []string{command})
	replyToHost(formatDispatchResponse(result, err), output, outputsize)
}

//export RVExtensionArgs
func RVExtensionArgs(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	command := C.GoString(input)

	if Config.dispatcher == nil || !Config.dispatcher.HasHandler(command) {
		replyToHost(formatDispatchResponse(nil, fmt.Errorf("no handler registered for %s", command)), output, outputsize)
		return
	}

	result, err := dispatch(command, parseArgsFromC(argv, argc))
	replyToHost(formatDispatchResponse(result, err), output, outputsize)
}

// dispatch runs a command through Config.dispatcher, recovering a panic
// raised by internal/plugin's invariant checks into an error response
// instead of letting it cross back into the host process as a crash.
func dispatch(command string, args []string) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%s: %v", command, r)
		}
	}()
	return Config.dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// parseArgsFromC walks a host-owned char** argument vector into a Go
// string slice. argv is never retained past the call.
func parseArgsFromC(argv **C.char, argc C.int) []string {
	offset := unsafe.Sizeof(uintptr(0))
	args := make([]string, 0, int(argc))
	for i := C.int(0); i < argc; i++ {
		args = append(args, C.GoString(*argv))
		argv = (**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(argv)) + offset))
	}
	return args
}

// formatDispatchResponse encodes a dispatch outcome as a compact JSON
// array: ["ok", result] on success (result omitted entirely when nil),
// ["error", message] on failure.
func formatDispatchResponse(result any, err error) string {
	if err != nil {
		encoded, _ := json.Marshal(err.Error())
		return fmt.Sprintf(`["error", %s]`, encoded)
	}
	if result == nil {
		return `["ok"]`
	}
	encoded, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return fmt.Sprintf(`["error", %q]`, marshalErr.Error())
	}
	return fmt.Sprintf(`["ok", %s]`, encoded)
}

// replyToHost copies response into the host-owned output buffer,
// truncating to outputsize if necessary.
func replyToHost(response string, output *C.char, outputsize C.size_t) {
	cstr := C.CString(response)
	defer C.free(unsafe.Pointer(cstr))
	size := C.strlen(cstr) + 1
	if size > outputsize {
		size = outputsize
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(cstr), size)
}
