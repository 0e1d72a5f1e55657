package modules

import (
	"github.com/cuemby/ovconverge/pkg/client"
	"github.com/cuemby/ovconverge/pkg/resolve"
)

// Image streamer artifacts only converge present and absent
func init() {
	Register(
		&Module{
			Name:      "image_streamer_deployment_plan",
			FactKey:   "deployment_plan",
			Kind:      client.DeploymentPlans,
			Rules:     resolve.DeploymentPlanRules,
			Lifecycle: true,
		},
		&Module{
			Name:      "image_streamer_golden_image",
			FactKey:   "golden_image",
			Kind:      client.GoldenImages,
			Rules:     resolve.GoldenImageRules,
			Lifecycle: true,
		},
		&Module{
			Name:      "image_streamer_plan_script",
			FactKey:   "plan_script",
			Kind:      client.PlanScripts,
			Lifecycle: true,
		},
		&Module{
			Name:      "image_streamer_build_plan",
			FactKey:   "build_plan",
			Kind:      client.BuildPlans,
			Rules:     resolve.BuildPlanRules,
			Lifecycle: true,
		},
		&Module{
			Name:      "image_streamer_artifact_bundle",
			FactKey:   "artifact_bundle",
			Kind:      client.ArtifactBundles,
			Rules:     resolve.ArtifactBundleRules,
			Lifecycle: true,
		},
	)
}
