//go:build unix

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Tests that provision an environment change the process working directory
// while the installer runs, so they do not call t.Parallel.

func Test_Create_Provisions_Environment_And_Restores_Cwd(t *testing.T) {
	c := NewCLITester(t)
	c.WriteSource()

	before := mustGetwd(t)

	c.MustRun("create")

	if got := mustGetwd(t); got != before {
		t.Errorf("cwd = %q, want %q", got, before)
	}

	if !c.FileExists("tmp/acts_preupload_virtualenv/bin/python3") {
		t.Error("interpreter not created")
	}

	if !c.FileExists("tmp/acts_preupload_virtualenv/framework/acts/controllers/android_device.py") {
		t.Error("source tree not copied")
	}

	copyDir, err := filepath.EvalSymlinks(filepath.Join(c.Root(), "framework"))
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}

	want := []string{copyDir + "|setup.py develop"}
	if diff := cmp.Diff(want, c.InstallLog()); diff != "" {
		t.Errorf("install log mismatch (-want +got):\n%s", diff)
	}
}

func Test_Bare_Invocation_Runs_Create(t *testing.T) {
	c := NewCLITester(t)
	c.WriteSource()

	c.MustRun()

	if !c.FileExists("tmp/acts_preupload_virtualenv/framework/setup.py") {
		t.Error("bare invocation did not provision the environment")
	}
}

func Test_Create_Binary_Exits_Zero_On_Success(t *testing.T) {
	c := NewCLITester(t)
	c.WriteSource()

	_, stderr, code := c.RunBinary()
	if code != 0 {
		t.Fatalf("exit code = %d, want 0\nstderr: %s", code, stderr)
	}

	if !c.FileExists("tmp/acts_preupload_virtualenv/framework/setup.py") {
		t.Error("binary did not provision the environment")
	}
}

func Test_Create_Propagates_Installer_Exit_Code(t *testing.T) {
	c := NewCLITester(t)
	c.WriteSource()
	c.Env["FAKE_INSTALL_EXIT"] = "7"

	before := mustGetwd(t)

	_, stderr, code := c.Run("create")
	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}

	AssertContains(t, stderr, "installation failed")

	if got := mustGetwd(t); got != before {
		t.Errorf("cwd = %q, want %q", got, before)
	}
}

func Test_Create_Missing_Source_Still_Runs_Installer(t *testing.T) {
	c := NewCLITester(t)

	_, stderr, code := c.Run("create")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}

	AssertContains(t, stderr, "copy failed")
	AssertContains(t, stderr, "directory change failed")

	// Best-effort: the installer still ran, from the caller's directory.
	if len(c.InstallLog()) != 1 {
		t.Errorf("install log = %v, want one entry", c.InstallLog())
	}
}

func Test_Create_FailFast_Stops_After_First_Failure(t *testing.T) {
	c := NewCLITester(t)

	_, stderr, code := c.Run("create", "--fail-fast")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}

	AssertContains(t, stderr, "copy failed")
	AssertNotContains(t, stderr, "directory change failed")

	if c.FileExists("tmp/acts_preupload_virtualenv/install.log") {
		t.Error("installer ran despite --fail-fast")
	}
}

func Test_Create_FailFast_From_Project_Config(t *testing.T) {
	c := NewCLITester(t)
	c.WriteFile(".acts-venv.jsonc", `{
		// stop early
		"failFast": true,
	}`)

	_, _, code := c.Run("create")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}

	if c.FileExists("tmp/acts_preupload_virtualenv/install.log") {
		t.Error("installer ran despite failFast config")
	}
}

func Test_Create_Fresh_Removes_Stale_Files(t *testing.T) {
	c := NewCLITester(t)
	c.WriteSource()

	c.MustRun("create")
	c.WriteFile("tmp/acts_preupload_virtualenv/stale.txt", "old")

	c.MustRun("create", "--fresh")

	if c.FileExists("tmp/acts_preupload_virtualenv/stale.txt") {
		t.Error("--fresh kept stale file")
	}

	if !c.FileExists("tmp/acts_preupload_virtualenv/framework/setup.py") {
		t.Error("environment not provisioned after --fresh")
	}
}

func Test_Create_Fresh_Refuses_Non_Environment_Root(t *testing.T) {
	c := NewCLITester(t)
	c.WriteSource()
	c.WriteFile("project/README.md", "keep me")

	stderr := c.MustFail("create", "--fresh", "--root", "project")

	AssertContains(t, stderr, "not an environment root")

	if !c.FileExists("project/README.md") {
		t.Error("--fresh removed a non-environment directory")
	}
}

func Test_Create_Custom_Root_And_Source_Flags(t *testing.T) {
	c := NewCLITester(t)
	c.WriteFile("src/acts/setup.py", "setup()\n")

	c.MustRun("create", "--root", "envs/acts", "--source", "src/acts", "--installer", "editable")

	if !c.FileExists("envs/acts/acts/setup.py") {
		t.Error("copy not placed under custom root")
	}

	data, err := os.ReadFile(filepath.Join(c.Dir, "envs", "acts", "install.log"))
	if err != nil {
		t.Fatalf("read install log: %v", err)
	}

	AssertContains(t, string(data), "|-m pip install -e .")
}

func Test_Create_DryRun_Prints_Plan_Without_Executing(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	stdout := c.MustRun("create", "--dry-run", "--root", "/opt/env", "--source", "/src/framework")

	want := []string{
		"python3 -m venv /opt/env",
		"cp -r /src/framework /opt/env/framework",
		"cd /opt/env/framework",
		"/opt/env/bin/python3 setup.py develop",
		"cd -",
	}

	if diff := cmp.Diff(want, strings.Split(stdout, "\n")); diff != "" {
		t.Errorf("dry-run output mismatch (-want +got):\n%s", diff)
	}

	if c.FileExists("tmp/acts_preupload_virtualenv") {
		t.Error("dry-run created the environment")
	}
}

func Test_Create_Rejects_Unknown_Creator(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	stderr := c.MustFail("create", "--creator", "conda")

	AssertContains(t, stderr, "creator")
}

func Test_Create_Debug_Prints_Plan_And_Steps(t *testing.T) {
	c := NewCLITester(t)
	c.WriteSource()

	_, stderr, code := c.Run("create", "--debug")
	if code != 0 {
		t.Fatalf("exit code = %d\nstderr: %s", code, stderr)
	}

	AssertContains(t, stderr, "=== Config Loading ===")
	AssertContains(t, stderr, "=== Plan ===")
	AssertContains(t, stderr, "=== Steps ===")
	AssertContains(t, stderr, "install: ok")
}

func Test_ShellJoin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		argv []string
		want string
	}{
		{[]string{"cd", "/a/b"}, "cd /a/b"},
		{[]string{"cp", "-r", "/my dir", "/x"}, "cp -r '/my dir' /x"},
		{[]string{"echo", ""}, "echo ''"},
		{[]string{"echo", "it's"}, `echo 'it'\''s'`},
	}

	for _, tt := range tests {
		if got := shellJoin(tt.argv); got != tt.want {
			t.Errorf("shellJoin(%q) = %q, want %q", tt.argv, got, tt.want)
		}
	}
}
