// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

const (
	ConfigLoadFailedId Id = iota + 1
	ProjectLayoutId
	ResourceListInvalidId
	ProducerFailedId
	ToolNotFoundId
	DeployFailedId
)

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the build configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Print the effective configuration with its defaults:
~~~
$ rcbuild config show
~~~
- Remove unknown fields; the schema is closed
- Durations use Go syntax such as ` + "`500ms`" + ` or ` + "`2s`" + `
- Environment variables use the ` + "`RCBUILD_`" + ` prefix, e.g. ` + "`RCBUILD_JOBS=4`",
	}

	projectLayoutIssue = &Issue{
		id: ProjectLayoutId,
		mdMsg: `
# This does not look like a calculator project!

rcbuild expects this layout below the project root:

~~~
core/                     shared templates, styles and TypeScript sources
resource_lists/<calc>/    resources.yaml, icon.png, images/, plugins/
output/                   generated site (created on demand)
cache/                    intermediate files (created on demand)
~~~

## Things you can try:
- Run from the project root or pass ` + "`--root DIR`" + `
- Point ` + "`source_dir`" + ` and ` + "`core_dir`" + ` at your folders in ` + "`rcbuild.cue`",
	}

	resourceListInvalidIssue = &Issue{
		id: ResourceListInvalidId,
		mdMsg: `
# A resource list has errors!

Errors are reported as ` + "`line:column: path: message`" + `. The calculator is
still built from the entries that could be read.

## Common issues:
- Unknown top-level keys (allowed: ` + "`index_page_display_name`, `authors`, `recipe_types`, `requirement_groups`, `resources`" + `)
- Requirement names that are neither a resource nor a requirement group
- Empty requirement groups
- Non-integer quantities`,
	}

	producerFailedIssue = &Issue{
		id: ProducerFailedId,
		mdMsg: `
# Some outputs could not be built!

Every failing producer is listed above with the source file that triggered it.
Other outputs were still built, and the next run retries only what is stale.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see each staleness decision
- Force a category to rebuild with ` + "`--force-html`" + ` or ` + "`--force-image`",
	}

	toolNotFoundIssue = &Issue{
		id: ToolNotFoundId,
		mdMsg: `
# An external tool is missing!

The TypeScript compiler, the JavaScript minifier and the linter are run through
the commands configured under ` + "`commands`" + `.

## Things you can try:
- Install the JavaScript tooling:
~~~
$ npm install
~~~
- Skip minification for development builds with ` + "`--no-uglify-js`" + ` or ` + "`--draft`",
	}

	deployFailedIssue = &Issue{
		id: DeployFailedId,
		mdMsg: `
# Deployment failed!

The output tree is uploaded to an S3-compatible bucket.

## Things you can try:
- Set ` + "`RCBUILD_ACCESS_KEY`" + ` and ` + "`RCBUILD_SECRET_KEY`" + ` (a ` + "`.env`" + ` file in the root is read)
- Check ` + "`deploy.endpoint`" + `, ` + "`deploy.bucket`" + ` and ` + "`deploy.use_ssl`" + `
- Build first; deploy never builds`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		projectLayoutIssue.Id():       projectLayoutIssue,
		resourceListInvalidIssue.Id(): resourceListInvalidIssue,
		producerFailedIssue.Id():      producerFailedIssue,
		toolNotFoundIssue.Id():        toolNotFoundIssue,
		deployFailedIssue.Id():        deployFailedIssue,
	}
)

type (
	// Id identifies an Issue.
	Id int

	// MarkdownMsg is Markdown rendered for the user.
	MarkdownMsg string

	// Issue is a long-form guide for a class of failure.
	Issue struct {
		id    Id
		mdMsg MarkdownMsg
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the guide with the named glamour style ("dark", "light",
// "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

// Values returns every issue ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the issue for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
