package hallucinate

import "strings"

// knownModules lists Python standard library and widely deployed
// third-party packages. Imports outside this set that also resolve to
// nothing in the graph are treated as possibly fabricated.
var knownModules = map[string]bool{
	// stdlib
	"abc": true, "argparse": true, "asyncio": true, "base64": true,
	"collections": true, "configparser": true, "contextlib": true,
	"copy": true, "csv": true, "dataclasses": true, "datetime": true,
	"decimal": true, "enum": true, "functools": true, "glob": true,
	"hashlib": true, "heapq": true, "hmac": true, "html": true,
	"http": true, "importlib": true, "inspect": true, "io": true,
	"itertools": true, "json": true, "logging": true, "math": true,
	"multiprocessing": true, "os": true, "pathlib": true, "pickle": true,
	"queue": true, "random": true, "re": true, "secrets": true,
	"shutil": true, "signal": true, "socket": true, "sqlite3": true,
	"string": true, "struct": true, "subprocess": true, "sys": true,
	"tempfile": true, "threading": true, "time": true, "traceback": true,
	"types": true, "typing": true, "unittest": true, "urllib": true,
	"uuid": true, "warnings": true, "weakref": true, "xml": true,
	"zipfile": true, "zlib": true,
	// common third-party
	"aiohttp": true, "boto3": true, "celery": true, "click": true,
	"django": true, "fastapi": true, "flask": true, "grpc": true,
	"httpx": true, "jinja2": true, "kafka": true, "marshmallow": true,
	"numpy": true, "pandas": true, "pika": true, "psycopg2": true,
	"pydantic": true, "pymongo": true, "pymysql": true, "pytest": true,
	"redis": true, "requests": true, "scipy": true, "setuptools": true,
	"sqlalchemy": true, "starlette": true, "urllib3": true, "yaml": true,
}

// isKnownModule reports whether the root package of a dotted module
// path is a known module.
func isKnownModule(module string) bool {
	root, _, _ := strings.Cut(module, ".")
	return knownModules[root]
}
