package value

// Natives is the builtin table: the compiler pools each of these as a
// Constant at every call site, rather than reaching them through a
// memory slot the way a user-declared Function is — a NativeFunction
// has no SetMem-assigned home, it is simply pushed whenever its name is
// called. panic(message) raises a runtime error carrying message;
// input(message) prints message and reads one line from standard input
// as a string.
var Natives = []*NativeFunction{
	{Name: "panic", ParamCount: 1, Fn: nativePanic},
	{Name: "input", ParamCount: 1, Fn: nativeInput},
}

func nativePanic(vm NativeVM) InterpretResult {
	msg := vm.Pop()
	vm.RuntimeError("%s", msg.ToString())
	vm.Push(Nil())
	return ResultRuntimeError
}

func nativeInput(vm NativeVM) InterpretResult {
	prompt := vm.Pop()
	vm.Print(prompt.ToString())
	line := vm.ReadLine()
	vm.Push(NewObject(vm.Intern(line)))
	return ResultOk
}
