package packetchain

import "reflect"

func reflectFuncPtr(fn HandlerFunc) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
