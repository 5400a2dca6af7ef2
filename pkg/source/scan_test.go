package source

import (
	"reflect"
	"testing"
)

func TestExtractRequire(t *testing.T) {
	src := []byte(`
var b = require('./b');
var c = require("./c.js");
module.exports = b + c;
`)
	got := Scanner{}.Extract(src)
	want := []string{"./b", "./c.js"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestExtractImports(t *testing.T) {
	src := []byte(`
import a from './a';
import { b, c } from "./bc";
import './side-effect';
export { d } from './d';
`)
	got := Scanner{}.Extract(src)
	want := []string{"./a", "./bc", "./side-effect", "./d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestExtractSkipsComments(t *testing.T) {
	src := []byte(`
// var x = require('./commented');
/* require('./blocked') */
var y = require('./real');
`)
	got := Scanner{}.Extract(src)
	want := []string{"./real"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestExtractPreservesOrderAndDuplicates(t *testing.T) {
	src := []byte(`
import z from './z';
var a = require('./a');
var z2 = require('./z');
`)
	got := Scanner{}.Extract(src)
	want := []string{"./z", "./a", "./z"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestExtractIgnoresMemberRequire(t *testing.T) {
	src := []byte(`
var x = foo.require('./nope');
var y = require('./yes');
`)
	got := Scanner{}.Extract(src)
	want := []string{"./yes"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestExtractEmpty(t *testing.T) {
	if got := (Scanner{}).Extract([]byte("module.exports = 42;")); len(got) != 0 {
		t.Errorf("Extract() = %v, want empty", got)
	}
}
