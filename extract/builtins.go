package extract

// pythonBuiltins lists builtin callables that should never count as
// unresolved references.
var pythonBuiltins = map[string]bool{
	"abs": true, "aiter": true, "all": true, "anext": true, "any": true,
	"ascii": true, "bin": true, "bool": true, "bytearray": true,
	"bytes": true, "callable": true, "chr": true, "classmethod": true,
	"compile": true, "complex": true, "delattr": true, "dict": true,
	"dir": true, "divmod": true, "enumerate": true, "eval": true,
	"exec": true, "filter": true, "float": true, "format": true,
	"frozenset": true, "getattr": true, "globals": true, "hasattr": true,
	"hash": true, "help": true, "hex": true, "id": true, "input": true,
	"int": true, "isinstance": true, "issubclass": true, "iter": true,
	"len": true, "list": true, "locals": true, "map": true, "max": true,
	"memoryview": true, "min": true, "next": true, "object": true,
	"oct": true, "open": true, "ord": true, "pow": true, "print": true,
	"property": true, "range": true, "repr": true, "reversed": true,
	"round": true, "set": true, "setattr": true, "slice": true,
	"sorted": true, "staticmethod": true, "str": true, "sum": true,
	"super": true, "tuple": true, "type": true, "vars": true, "zip": true,
	"Exception": true, "ValueError": true, "TypeError": true,
	"KeyError": true, "IndexError": true, "RuntimeError": true,
	"NotImplementedError": true, "StopIteration": true, "AttributeError": true,
}

func isPythonBuiltin(name string) bool {
	return pythonBuiltins[name]
}
