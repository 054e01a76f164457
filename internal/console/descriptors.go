package console

import "github.com/noah-isme/storefront-gateway/internal/collection"

// Vendedores describes the vendor console. Vendors are scoped to the tenant
// and carry an account state the admin panel can flip.
func Vendedores() collection.Descriptor {
	return collection.Descriptor{
		Name:       "vendedores",
		Path:       "/vendedores",
		Tenanted:   true,
		StateKey:   "estado_cuenta",
		SearchKeys: []string{"nombre", "email", "empresa"},
		Fields: []collection.Field{
			{Key: "nombre", Label: "Nombre", Required: true},
			{Key: "email", Label: "Email", Required: true},
			{Key: "password", Label: "Password", Required: true, Secret: true},
			{Key: "telefono", Label: "Teléfono"},
			{Key: "empresa", Label: "Empresa"},
			{Key: "direccion", Label: "Dirección"},
			{Key: "estado_cuenta", Label: "Estado"},
		},
	}
}

// Compradores describes the buyer console.
func Compradores() collection.Descriptor {
	return collection.Descriptor{
		Name:       "compradores",
		Path:       "/compradores",
		StateKey:   "estado_cuenta",
		SearchKeys: []string{"nombre", "email"},
		Fields: []collection.Field{
			{Key: "nombre", Label: "Nombre", Required: true},
			{Key: "email", Label: "Email", Required: true},
			{Key: "password", Label: "Password", Required: true, Secret: true},
			{Key: "id_comprador", Label: "ID Comprador", Required: true, Numeric: true},
			{Key: "direccion", Label: "Dirección"},
			{Key: "telefono", Label: "Teléfono"},
			{Key: "estado_cuenta", Label: "Estado"},
		},
	}
}

// Administradores describes the administrator console.
func Administradores() collection.Descriptor {
	return collection.Descriptor{
		Name:       "administradores",
		Path:       "/administradores",
		StateKey:   "estado_cuenta",
		SearchKeys: []string{"nombre", "email"},
		Fields: []collection.Field{
			{Key: "nombre", Label: "Nombre", Required: true},
			{Key: "email", Label: "Email", Required: true},
			{Key: "password", Label: "Password", Required: true, Secret: true},
			{Key: "id_admin", Label: "ID Admin", Required: true, Numeric: true},
			{Key: "nivel_acceso", Label: "Nivel de acceso", Required: true},
			{Key: "estado_cuenta", Label: "Estado"},
		},
	}
}

// Usuarios describes the platform user console.
func Usuarios() collection.Descriptor {
	return collection.Descriptor{
		Name:       "usuarios",
		Path:       "/usuarios",
		SearchKeys: []string{"nombre", "email"},
		Fields: []collection.Field{
			{Key: "nombre", Label: "Nombre", Required: true},
			{Key: "email", Label: "Email", Required: true},
			{Key: "password", Label: "Password", Required: true, Secret: true},
		},
	}
}

// Categorias describes the category console.
func Categorias() collection.Descriptor {
	return collection.Descriptor{
		Name:       "categorias",
		Path:       "/categorias",
		Tenanted:   true,
		SearchKeys: []string{"nombre", "slug"},
		Fields: []collection.Field{
			{Key: "slug", Label: "Slug", Required: true},
			{Key: "nombre", Label: "Nombre", Required: true},
			{Key: "descripcion", Label: "Descripción"},
		},
	}
}

// Productos describes the product console.
func Productos() collection.Descriptor {
	return collection.Descriptor{
		Name:       "productos",
		Path:       "/productos",
		SearchKeys: []string{"nombre"},
		Fields: []collection.Field{
			{Key: "nombre", Label: "Nombre", Required: true},
			{Key: "precio", Label: "Precio", Required: true, Numeric: true},
			{Key: "categoria_id", Label: "Categoría", Required: true, Numeric: true},
			{Key: "vendedor_id", Label: "Vendedor", Required: true, Numeric: true},
		},
	}
}

// Pedidos describes the order console. Orders are created by checkout, not
// from the console, so no field is required here; the console lists them and
// flips their delivery state.
func Pedidos() collection.Descriptor {
	return collection.Descriptor{
		Name:       "pedidos",
		Path:       "/pedidos",
		SearchKeys: []string{"estado"},
		Fields: []collection.Field{
			{Key: "comprador_id", Label: "Comprador", Numeric: true},
			{Key: "total", Label: "Total", Numeric: true},
			{Key: "estado", Label: "Estado"},
		},
	}
}

// VendedorProductos describes one vendor's product sub-collection. The cache
// name embeds the vendor id so pages of different vendors never collide.
func VendedorProductos(vendorID string) collection.Descriptor {
	return collection.Descriptor{
		Name:       "vendedores:" + vendorID + ":productos",
		Path:       "/vendedores/" + vendorID + "/productos",
		SearchKeys: []string{"nombre"},
		Fields: []collection.Field{
			{Key: "nombre", Label: "Nombre", Required: true},
			{Key: "precio", Label: "Precio", Required: true, Numeric: true},
			{Key: "categoria_id", Label: "Categoría", Required: true, Numeric: true},
		},
	}
}
