//go:build unix

package main

import "testing"

func Test_Clean_Removes_Environment(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.WriteFile("tmp/acts_preupload_virtualenv/framework/setup.py", "setup()\n")
	c.WriteExecutable("tmp/acts_preupload_virtualenv/bin/python3", "#!/bin/sh\n")

	stdout := c.MustRun("clean")

	AssertContains(t, stdout, "removed "+c.Root())

	if c.FileExists("tmp/acts_preupload_virtualenv") {
		t.Error("root still exists after clean")
	}
}

func Test_Clean_Missing_Root_Succeeds(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	c.MustRun("rm", "-q", "--root", "nowhere")
}

func Test_Clean_Rejects_Filesystem_Root(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	c.MustFail("clean", "--root", "/")
}

func Test_Clean_Refuses_Non_Environment_Directory(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.WriteFile("notes/thesis.tex", "draft")

	stderr := c.MustFail("clean", "--root", "notes")

	AssertContains(t, stderr, "not an environment root")

	if !c.FileExists("notes/thesis.tex") {
		t.Error("clean removed a non-environment directory")
	}
}
