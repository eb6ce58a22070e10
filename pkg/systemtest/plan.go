/*
Copyright 2022 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package systemtest

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"sigs.k8s.io/kubedev/pkg/config"
	"sigs.k8s.io/kubedev/pkg/docker"
	"sigs.k8s.io/kubedev/pkg/run"
)

// plan is a system test definition resolved against the project. Every
// configuration error surfaces while building it, before any resource
// is created.
type plan struct {
	app        config.AppDefinition
	appType    run.AppType
	image      config.ImageDescriptor
	definition *config.SystemTest
	services   []service
	// harnessVars are the global variables merged with the test
	// container's own ones
	harnessVars map[string]string
}

// service is a backing service ready to be started
type service struct {
	ref      string
	image    string
	hostname string
	// own is set when the service is one of the project's apps
	own *config.ImageDescriptor
	// overrides are the service's own variables, variables also
	// includes the global ones
	overrides map[string]string
	variables map[string]string
	ports     []string
}

// appReference returns the app name of a {appName} service reference
func appReference(ref string) (string, bool) {
	if len(ref) > 2 && strings.HasPrefix(ref, "{") && strings.HasSuffix(ref, "}") {
		return ref[1 : len(ref)-1], true
	}
	return "", false
}

func newPlan(p *config.Project, appName string, env config.Env) (*plan, error) {
	app, ok := p.LookupApp(appName)
	if !ok {
		return nil, config.NewError(
			"invalid app %s specified, available apps: %s", appName, strings.Join(p.AppNames(), ", "),
		)
	}
	if app.SystemTest == nil {
		return nil, config.NewError("app %s does not define a systemTest", appName)
	}
	appType, err := run.AppTypeFromSection(app.Section)
	if err != nil {
		return nil, config.NewError("%s: %v", appName, err)
	}

	images := p.Images(env)
	image, ok := images[appName]
	if !ok {
		return nil, config.NewError("no image is defined for app %s", appName)
	}

	res := &plan{
		app:         app,
		appType:     appType,
		image:       image,
		definition:  app.SystemTest,
		harnessVars: merge(app.SystemTest.Variables, app.SystemTest.TestContainer.Variables),
	}

	for _, ns := range app.SystemTest.Services {
		svc, err := resolveService(ns, images, app.SystemTest.Variables, env)
		if err != nil {
			return nil, err
		}
		res.services = append(res.services, svc)
	}
	return res, nil
}

func resolveService(
	ns config.NamedService, images map[string]config.ImageDescriptor, globals map[string]string, env config.Env,
) (service, error) {
	if ns.Spec.Hostname == "" {
		return service{}, config.NewError("the field hostname is required in systemTest.service %s", ns.Ref)
	}
	if ns.Spec.Ports == nil {
		return service{}, config.NewError("the field ports is required in systemTest.service %s", ns.Ref)
	}
	hostname, err := config.ExpandVariables(ns.Spec.Hostname, env, ns.Spec.Variables)
	if err != nil {
		return service{}, fmt.Errorf("expanding hostname of service %s: %w", ns.Ref, err)
	}

	svc := service{
		ref:       ns.Ref,
		image:     ns.Ref,
		hostname:  hostname,
		overrides: merge(ns.Spec.Variables),
		variables: merge(globals, ns.Spec.Variables),
		ports:     ns.Spec.Ports,
	}
	if name, ok := appReference(ns.Ref); ok {
		img, ok := images[name]
		if !ok {
			return service{}, config.NewError(
				"app %q is referenced by the system test service %s, but is not defined in kubedev config", name, ns.Ref,
			)
		}
		svc.own = &img
		svc.image = img.ImageName
		return svc, nil
	}
	if err := docker.ValidateImage(ns.Ref); err != nil {
		return service{}, config.NewError("service %s: %v", ns.Ref, err)
	}
	return svc, nil
}

// merge returns the union of the maps, later maps win
func merge(ms ...map[string]string) map[string]string {
	res := map[string]string{}
	for _, m := range ms {
		maps.Copy(res, m)
	}
	return res
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
