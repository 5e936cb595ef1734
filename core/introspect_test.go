package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleDiff = `commit deadbee
Author: A <a@example.com>

    Fix path traversal

diff --git a/lib/a.py b/lib/a.py
index 1111111..2222222 100644
--- a/lib/a.py
+++ b/lib/a.py
@@ -1,3 +1,4 @@
 def load(path):
-    return open(path)
+    return open(safe(path))
+def safe(path):
diff --git a/src/util.js b/src/util.js
--- a/src/util.js
+++ b/src/util.js
@@ -4 +4 @@ class Helper:
-async function parse(x) {
+async function parse(x, opts) {
diff --git a/old.py b/old.py
deleted file mode 100644
--- a/old.py
+++ /dev/null
@@ -1 +0,0 @@
-class Gone:
`

func TestIntrospectDiff(t *testing.T) {
	files, symbols := IntrospectDiff(sampleDiff)

	assert.Equal(t, []string{"lib/a.py", "src/util.js"}, files)
	assert.Equal(t, []string{
		"def load(path):",
		"+def safe(path):",
		"-async function parse(x) {",
		"+async function parse(x, opts) {",
		"-class Gone:",
	}, symbols)
}

func TestIntrospectDiffKeepsDuplicates(t *testing.T) {
	diff := "+++ b/a.py\n+++ b/a.py\n"
	files, symbols := IntrospectDiff(diff)
	assert.Equal(t, []string{"a.py", "a.py"}, files)
	assert.Empty(t, symbols)
}

func TestIntrospectDiffEmpty(t *testing.T) {
	files, symbols := IntrospectDiff("")
	assert.NotNil(t, files)
	assert.NotNil(t, symbols)
	assert.Empty(t, files)
	assert.Empty(t, symbols)
}

func TestStripDiffMarker(t *testing.T) {
	assert.Equal(t, "def f():", stripDiffMarker("+def f():"))
	assert.Equal(t, "def f():", stripDiffMarker(" def f():"))
	assert.Equal(t, "@@ -1 +1 @@", stripDiffMarker("@@ -1 +1 @@"))
	assert.Equal(t, "", stripDiffMarker(""))
}
