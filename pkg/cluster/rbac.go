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

package cluster

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

const (
	// TillerServiceAccount is the service account helm's tiller runs as
	TillerServiceAccount = "tiller"
	TillerNamespace      = "kube-system"
	TillerDeployment     = "tiller-deploy"
)

// RBACManifest returns the manifest granting cluster-admin to the
// tiller service account
func RBACManifest() (string, error) {
	all := rbacv1.PolicyRule{
		APIGroups: []string{"*"},
		Resources: []string{"*"},
		Verbs:     []string{"*"},
	}
	objects := []any{
		&rbacv1.ClusterRole{
			TypeMeta: metav1.TypeMeta{APIVersion: rbacv1.SchemeGroupVersion.String(), Kind: "ClusterRole"},
			ObjectMeta: metav1.ObjectMeta{
				Name:        "cluster-admin",
				Annotations: map[string]string{"rbac.authorization.kubernetes.io/autoupdate": "true"},
				Labels:      map[string]string{"kubernetes.io/bootstrapping": "rbac-defaults"},
			},
			Rules: []rbacv1.PolicyRule{
				all,
				{NonResourceURLs: []string{"*"}, Verbs: []string{"*"}},
			},
		},
		&corev1.ServiceAccount{
			TypeMeta: metav1.TypeMeta{APIVersion: corev1.SchemeGroupVersion.String(), Kind: "ServiceAccount"},
			ObjectMeta: metav1.ObjectMeta{
				Name:      TillerServiceAccount,
				Namespace: TillerNamespace,
			},
		},
		&rbacv1.ClusterRoleBinding{
			TypeMeta:   metav1.TypeMeta{APIVersion: rbacv1.SchemeGroupVersion.String(), Kind: "ClusterRoleBinding"},
			ObjectMeta: metav1.ObjectMeta{Name: TillerServiceAccount},
			RoleRef: rbacv1.RoleRef{
				APIGroup: rbacv1.GroupName,
				Kind:     "ClusterRole",
				Name:     "cluster-admin",
			},
			Subjects: []rbacv1.Subject{{
				Kind:      rbacv1.ServiceAccountKind,
				Name:      TillerServiceAccount,
				Namespace: TillerNamespace,
			}},
		},
	}

	docs := make([]string, 0, len(objects))
	for _, o := range objects {
		data, err := yaml.Marshal(o)
		if err != nil {
			return "", fmt.Errorf("marshaling rbac object: %w", err)
		}
		docs = append(docs, string(data))
	}
	return strings.Join(docs, "---\n"), nil
}
