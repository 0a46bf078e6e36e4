package sverilog

// Node-kind and field-name vocabulary of the tree-sitter-verilog grammar
// that C3/C4 walk. Centralized here so the walkers in index.go and
// usage.go read as grammar-driven pattern matches over node.Type().
const (
	nodeModuleDecl    = "module_declaration"
	nodeInterfaceDecl = "interface_declaration"
	nodePackageDecl   = "package_declaration"
	nodeProgramDecl   = "program_declaration"
	nodeCheckerDecl   = "checker_declaration"

	nodeComment = "comment"

	nodeDefineDirective     = "text_macro_definition"
	nodeUndefDirective      = "undefine_compiler_directive"
	nodeTimescaleDirective  = "timescale_compiler_directive"
	nodeTimeunitDecl        = "timeunits_declaration"

	nodeModuleInstantiation = "module_instantiation"
	nodeHierarchicalInst    = "hierarchical_instance"

	nodeInterfacePortHeader = "interface_port_header"

	nodePackageScope = "package_scope"

	nodeImportDecl = "package_import_declaration"
	nodeImportItem = "package_import_item"

	nodeParamDecl     = "parameter_declaration"
	nodeParamPortDecl = "parameter_port_declaration"

	nodeTypedefDecl   = "type_declaration"
	nodeFunctionDecl  = "function_declaration"
	nodeTaskDecl      = "task_declaration"
	nodeConstDecl     = "constant_declaration"
	nodeNetDecl       = "net_declaration"
	nodeModportDecl   = "modport_declaration"

	nodeAttributeInstance = "attribute_instance"

	fieldName          = "name"
	fieldInstanceType  = "instance_type"
	fieldInstanceName  = "instance_name"
	fieldInterfaceName = "interface_name"
	fieldModportName   = "modport_name"
	fieldPackage       = "package"
	fieldItem          = "item"
	fieldDataType      = "type"
)
