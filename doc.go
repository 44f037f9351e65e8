// Package puppet renders and animates Live2D-style puppet sprites in a
// retained-mode scene graph for [Ebitengine].
//
// A [Puppet] owns a deformable [Model], an [ExpressionController] that plays
// at most one expression at a time, and a [SpriteTransform] that maps its
// scene [Node] into the model's coordinate space.
//
// # Quick start
//
//	scene := puppet.NewScene(puppet.WithLogger(logger))
//	loader := puppet.FSLoader{FS: os.DirFS("models")}
//	scene.LoadPuppet(ctx, loader, "haru/haru.model.json", nil, func(p *puppet.Puppet, err error) {
//		if err != nil {
//			return
//		}
//		p.Node().SetPosition(200, 100)
//		p.Resize(400, 600)
//		p.OnHit(func(h puppet.HitContext) {
//			p.Expressions().SetRandomExpression()
//		})
//	})
//	puppet.Run(scene, puppet.RunConfig{Title: "Puppets", Width: 1280, Height: 720})
//
// # Coordinate spaces
//
// The scene graph works in device pixels with Y down. Each frame a puppet's
// world matrix is scaled by the device-to-logical ratios
// ([ComputeScaleRatios]) into a [Mat4] ([ComputeModelMatrix]),
// flipping Y so model space grows upward. The logical world is 2 units high
// and 2*W/H wide ([Surface]). Pointer hits go the other way through
// [ToModelSpace].
//
// # Expressions
//
// Expression files load concurrently into an [ExpressionStore] and appear
// in completion order; failures are logged and skipped. The
// [MotionScheduler] preempts on every start, so a puppet never blends two
// expressions.
//
// # Threading
//
// Update and Draw run on one goroutine. Model and expression loads run in
// the background and are handed to the frame loop during Update.
//
// [Ebitengine]: https://ebitengine.org
package puppet
