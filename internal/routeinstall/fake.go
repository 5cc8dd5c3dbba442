package routeinstall

// FakeInstaller records every Install/Uninstall call for assertions in
// tests of code that depends on Installer.
type FakeInstaller struct {
	Installed   []Route
	Uninstalled []Route
	InstallErr  error
	UninstallErr error
}

func (f *FakeInstaller) Install(route Route) error {
	if f.InstallErr != nil {
		return f.InstallErr
	}
	f.Installed = append(f.Installed, route)
	return nil
}

func (f *FakeInstaller) Uninstall(route Route) error {
	if f.UninstallErr != nil {
		return f.UninstallErr
	}
	f.Uninstalled = append(f.Uninstalled, route)
	return nil
}
