package format

import (
	"testing"

	"shellpure/internal/shell/parser"
	"shellpure/internal/source"
)

func emitOnce(t *testing.T, src string) string {
	t.Helper()
	fs := source.NewFileSet()
	s, err := parser.ParseString(fs, "script.sh", src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return Emit(s)
}

const canonical = `#!/bin/sh
# deploy helper
set -eu

deploy() {
  dir="$1"
  if [ -d "$dir" ]; then
    echo exists # nothing to do
  elif [ -f "$dir" ]; then
    echo file >&2
  else
    mkdir -p "$dir"
  fi
}

for f in *.txt; do cat "$f"; done
while read -r line; do
  echo "$line"
done <input.txt
case "$1" in
  start|up)
    deploy /srv
    ;;
  *)
    echo usage
    ;;
esac
(cd /tmp && ls)
{ echo a; echo b; } >out.log
cat <<EOF
body $x
EOF
sleep 1 &
wait
`

func TestEmitPreservesCanonicalInput(t *testing.T) {
	if got := emitOnce(t, canonical); got != canonical {
		t.Fatalf("canonical input changed:\n--- got ---\n%s\n--- want ---\n%s", got, canonical)
	}
}

func TestEmitNormalises(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"if   true ;then echo  a;fi\n", "if true; then echo a; fi\n"},
		{"a&&b||c\n", "a && b || c\n"},
		{"x=1;y=2\n", "x=1\ny=2\n"},
		{"cat  file |grep  -v x\n", "cat file | grep -v x\n"},
		{"f(){ echo hi; }\n", "f() { echo hi; }\n"},
		{"function g {\necho hi\n}\n", "function g {\n  echo hi\n}\n"},
		{"while true; do sleep 1 & done\n", "while true; do sleep 1 & done\n"},
		{"case $x in a) echo a;; b) ;; esac\n", "case $x in a) echo a ;; b) ;; esac\n"},
		{"case \"$1\" in start) echo run;; *) echo usage; esac\n", "case \"$1\" in start) echo run ;; *) echo usage; esac\n"},
		{"case 0 in 0)0;esac\n", "case 0 in 0) 0; esac\n"},
		{"echo a |& tee log\n", "echo a |& tee log\n"},
		{"a|&b | c\n", "a |& b | c\n"},
	}
	for _, tt := range tests {
		if got := emitOnce(t, tt.in); got != tt.want {
			t.Errorf("emit(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEmitIsIdempotent(t *testing.T) {
	inputs := []string{
		canonical,
		"if a\nthen\n\tb\nfi\n",
		"echo \"multi\nline\" && if x; then y; fi\n",
		"for ((i=0; i<3; i++)); do echo $i; done\n",
		"[[ -n $a && $b == c ]] || exit 1\n",
		"arr=(1 2 3)\necho ${arr[@]}\n",
		"case \"$1\" in start) echo run;; *) echo usage; esac\n",
		"case $1 in a) x ;; b) y ;; *) z\nesac\n",
		"make 2>&1 |& tee log\n",
	}
	for _, in := range inputs {
		once := emitOnce(t, in)
		twice := emitOnce(t, once)
		if once != twice {
			t.Fatalf("emission not stable for %q:\nonce:\n%q\ntwice:\n%q", in, once, twice)
		}
	}
}
