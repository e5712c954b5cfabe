/*
Package domain contains the data model shared by every vignette component.

It defines the persisted aggregate (Document) and the entities it holds: the LockedCore
prompt constraints, SceneCards and Techniques referenced by Runs, and the Variants a Run
produces. The package is kept free of I/O and persistence concerns; validation of the
document lives in the schema package and state transitions live in workflow.

# Key Entities

  - Document: The single persisted aggregate (version 1).
  - Run: One generation batch, owning exactly VariantCount variants and an optional best pointer.
  - Variant: A generated prompt with immutable seed/controls/prompt and mutable QC fields.
  - Breakdown: The four QC sub-scores feeding the weighted grade.
*/
package domain
