package config

// stdlibModules lists the top-level standard-library module names known
// for each target version. Only the root name is stored; submodules (e.g.
// "os.path") are recognized by their root being in this set.
var stdlibModules = map[PythonVersion]map[string]bool{
	Py38:  baseStdlib(),
	Py39:  baseStdlib(),
	Py310: withExtra(baseStdlib(), "zoneinfo"),
	Py311: withExtra(baseStdlib(), "zoneinfo", "tomllib"),
	Py312: withExtra(baseStdlib(), "zoneinfo", "tomllib"),
	Py313: withExtra(baseStdlib(), "zoneinfo", "tomllib"),
}

func baseStdlib() map[string]bool {
	names := []string{
		"abc", "argparse", "array", "ast", "asyncio", "atexit", "base64",
		"bisect", "builtins", "bz2", "calendar", "collections", "concurrent",
		"configparser", "contextlib", "contextvars", "copy", "copyreg",
		"csv", "ctypes", "dataclasses", "datetime", "decimal", "difflib",
		"dis", "email", "encodings", "enum", "errno", "faulthandler",
		"fcntl", "filecmp", "fileinput", "fnmatch", "fractions", "ftplib",
		"functools", "gc", "getopt", "getpass", "gettext", "glob",
		"graphlib", "gzip", "hashlib", "heapq", "hmac", "html", "http",
		"imaplib", "importlib", "inspect", "io", "ipaddress", "itertools",
		"json", "keyword", "linecache", "locale", "logging", "lzma",
		"mailbox", "marshal", "math", "mimetypes", "mmap", "multiprocessing",
		"numbers", "operator", "os", "pathlib", "pickle", "pickletools",
		"pkgutil", "platform", "plistlib", "poplib", "posixpath", "pprint",
		"profile", "pstats", "pty", "pwd", "py_compile", "queue",
		"quopri", "random", "re", "reprlib", "resource", "runpy", "sched",
		"secrets", "select", "selectors", "shelve", "shlex", "shutil",
		"signal", "site", "smtplib", "socket", "socketserver", "sqlite3",
		"ssl", "stat", "statistics", "string", "stringprep", "struct",
		"subprocess", "sys", "sysconfig", "syslog", "tarfile", "tempfile",
		"termios", "textwrap", "threading", "time", "timeit", "tkinter",
		"token", "tokenize", "trace", "traceback", "tracemalloc", "tty",
		"turtle", "types", "typing", "unicodedata", "unittest", "urllib",
		"uuid", "venv", "warnings", "wave", "weakref", "webbrowser",
		"wsgiref", "xml", "xmlrpc", "zipapp", "zipfile", "zipimport",
		"zlib", "__future__", "__main__",
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func withExtra(base map[string]bool, extra ...string) map[string]bool {
	out := make(map[string]bool, len(base)+len(extra))
	for k := range base {
		out[k] = true
	}
	for _, e := range extra {
		out[e] = true
	}
	return out
}

// IsStdlib reports whether root (the first dotted component of a module
// name) is a standard-library module for the given target version.
func IsStdlib(version PythonVersion, root string) bool {
	table, ok := stdlibModules[version]
	if !ok {
		table = stdlibModules[Py312]
	}
	return table[root]
}

// sideEffectStdlibModules is a closed list of modules that perform I/O,
// mutate process state, or launch subprocesses on import, and therefore
// must never be hoisted even though they are otherwise eligible.
var sideEffectStdlibModules = map[string]bool{
	"antigravity": true,
	"this":        true,
	"readline":    true,
	"rlcompleter": true,
	"site":        true,
	"webbrowser":  true,
	"turtle":      true,
	"tkinter":     true,
	"subprocess":  true,
	"os":          true,
	"locale":      true,
	"logging":     true,
	"warnings":    true,
	"atexit":      true,
	"signal":      true,
	"faulthandler": true,
	"multiprocessing": true,
}

// HasSideEffectsOnImport reports whether a stdlib module's import is known
// to perform an observable action.
func HasSideEffectsOnImport(root string) bool {
	return sideEffectStdlibModules[root]
}
